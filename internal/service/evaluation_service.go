package service

import (
	"context"
	"strings"

	"unitoku/internal/models"
	"unitoku/internal/repository"
	"unitoku/internal/validation"
)

// EvaluationInput is the body of an evaluation request.
type EvaluationInput struct {
	AuthorName       string `json:"author_name" validate:"max=50"`
	Semester         string `json:"semester" validate:"max=50"`
	OverallScore     int    `json:"overall_score" validate:"min=1,max=5"`
	DifficultyScore  int    `json:"difficulty_score" validate:"min=1,max=5"`
	AssignmentsScore int    `json:"assignments_score" validate:"min=1,max=5"`
	TeachingScore    int    `json:"teaching_score" validate:"min=1,max=5"`
	GradingScore     int    `json:"grading_score" validate:"min=1,max=5"`
	Comment          string `json:"comment" validate:"max=5000"`
}

// AverageResult is the average score of a course. Average is nil without
// evaluations.
type AverageResult struct {
	CourseID uint     `json:"course_id"`
	Average  *float64 `json:"average"`
}

type EvaluationService struct {
	evals        repository.EvaluationRepository
	courses      repository.CourseRepository
	interactions repository.InteractionRepository
}

func NewEvaluationService(evals repository.EvaluationRepository, courses repository.CourseRepository, interactions repository.InteractionRepository) *EvaluationService {
	return &EvaluationService{evals: evals, courses: courses, interactions: interactions}
}

func (s *EvaluationService) CreateEvaluation(ctx context.Context, userID, courseID uint, in EvaluationInput) (*models.CourseEvaluation, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if _, err := s.courses.GetByID(ctx, courseID); err != nil {
		return nil, err
	}
	author := strings.TrimSpace(in.AuthorName)
	if author == "" {
		author = models.AnonymousAuthorName
	}
	eval := &models.CourseEvaluation{
		CourseID:         courseID,
		UserID:           userID,
		AuthorName:       author,
		Semester:         strings.TrimSpace(in.Semester),
		OverallScore:     in.OverallScore,
		DifficultyScore:  in.DifficultyScore,
		AssignmentsScore: in.AssignmentsScore,
		TeachingScore:    in.TeachingScore,
		GradingScore:     in.GradingScore,
		Comment:          in.Comment,
	}
	if err := s.evals.Create(ctx, eval); err != nil {
		return nil, err
	}
	return eval, nil
}

// ListEvaluations returns a course's evaluations newest first.
func (s *EvaluationService) ListEvaluations(ctx context.Context, courseID, currentUserID uint) ([]*models.CourseEvaluation, error) {
	if _, err := s.courses.GetByID(ctx, courseID); err != nil {
		return nil, err
	}
	evals, err := s.evals.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if evals == nil {
		evals = []*models.CourseEvaluation{}
	}
	if currentUserID != 0 && len(evals) > 0 {
		liked, err := s.interactions.LikedEvaluationIDs(ctx, currentUserID, ids(evals, func(e *models.CourseEvaluation) uint { return e.ID }))
		if err != nil {
			return nil, err
		}
		for _, e := range evals {
			e.Liked = liked[e.ID]
		}
	}
	return evals, nil
}

func (s *EvaluationService) AverageScore(ctx context.Context, courseID uint) (AverageResult, error) {
	if _, err := s.courses.GetByID(ctx, courseID); err != nil {
		return AverageResult{}, err
	}
	avg, err := s.evals.Average(ctx, courseID)
	if err != nil {
		return AverageResult{}, err
	}
	return AverageResult{CourseID: courseID, Average: avg}, nil
}

// ToggleLike flips the user's like on an evaluation.
func (s *EvaluationService) ToggleLike(ctx context.Context, userID, evaluationID uint) (LikeResult, error) {
	liked, count, err := s.interactions.ToggleEvaluationLike(ctx, userID, evaluationID)
	if err != nil {
		return LikeResult{}, err
	}
	return LikeResult{Liked: liked, LikeCount: count}, nil
}
