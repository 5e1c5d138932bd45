package repository

import (
	"context"

	"unitoku/internal/models"

	"gorm.io/gorm"
)

// EvaluationRepository stores course evaluations.
type EvaluationRepository interface {
	Create(ctx context.Context, eval *models.CourseEvaluation) error
	GetByID(ctx context.Context, id uint) (*models.CourseEvaluation, error)
	ListByCourse(ctx context.Context, courseID uint) ([]*models.CourseEvaluation, error)
	// Average is the mean per-evaluation average score, or nil without evaluations.
	Average(ctx context.Context, courseID uint) (*float64, error)
}

type evaluationRepository struct {
	db *gorm.DB
}

// NewEvaluationRepository creates a new evaluation repository
func NewEvaluationRepository(db *gorm.DB) EvaluationRepository {
	return &evaluationRepository{db: db}
}

func (r *evaluationRepository) Create(ctx context.Context, eval *models.CourseEvaluation) error {
	if err := r.db.WithContext(ctx).Create(eval).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *evaluationRepository) GetByID(ctx context.Context, id uint) (*models.CourseEvaluation, error) {
	var eval models.CourseEvaluation
	if err := r.db.WithContext(ctx).First(&eval, id).Error; err != nil {
		return nil, translate(err, "Evaluation", id)
	}
	return &eval, nil
}

// ListByCourse returns a course's evaluations newest first.
func (r *evaluationRepository) ListByCourse(ctx context.Context, courseID uint) ([]*models.CourseEvaluation, error) {
	var evals []*models.CourseEvaluation
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("created_at DESC, id DESC").
		Find(&evals).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return evals, nil
}

func (r *evaluationRepository) Average(ctx context.Context, courseID uint) (*float64, error) {
	var row struct{ Avg *float64 }
	err := r.db.WithContext(ctx).Model(&models.CourseEvaluation{}).
		Select("AVG((overall_score + difficulty_score + assignments_score + teaching_score + grading_score) / 5.0) AS avg").
		Where("course_id = ?", courseID).
		Scan(&row).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return row.Avg, nil
}
