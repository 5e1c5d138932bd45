package models

import (
	"encoding/json"
	"time"
)

// CourseEvaluation is a student review of a course with five 1..5 sub-scores.
type CourseEvaluation struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	CourseID         uint      `gorm:"not null;index" json:"course_id"`
	UserID           uint      `gorm:"not null;index" json:"user_id"`
	AuthorName       string    `gorm:"size:50;not null;default:'匿名'" json:"author_name"`
	Semester         string    `gorm:"size:50" json:"semester"`
	OverallScore     int       `gorm:"not null" json:"overall_score"`
	DifficultyScore  int       `gorm:"not null" json:"difficulty_score"`
	AssignmentsScore int       `gorm:"not null" json:"assignments_score"`
	TeachingScore    int       `gorm:"not null" json:"teaching_score"`
	GradingScore     int       `gorm:"not null" json:"grading_score"`
	Comment          string    `gorm:"type:text" json:"comment"`
	Likes            int       `gorm:"not null;default:0" json:"likes"`
	Liked            bool      `gorm:"-" json:"liked"`
	CreatedAt        time.Time `gorm:"index" json:"created_at"`
}

// Anonymous reports whether the review is shown without a name.
func (e CourseEvaluation) Anonymous() bool {
	return e.AuthorName == "" || e.AuthorName == AnonymousAuthorName
}

// MarshalJSON omits user_id for anonymous reviews.
func (e CourseEvaluation) MarshalJSON() ([]byte, error) {
	type evaluation CourseEvaluation
	out := struct {
		evaluation
		UserID uint `json:"user_id,omitempty"`
	}{evaluation: evaluation(e)}
	if !e.Anonymous() {
		out.UserID = e.UserID
	}
	return json.Marshal(out)
}

// Scores returns the five sub-scores in a fixed order.
func (e CourseEvaluation) Scores() [5]int {
	return [5]int{e.OverallScore, e.DifficultyScore, e.AssignmentsScore, e.TeachingScore, e.GradingScore}
}

// AverageScore is the mean of the five sub-scores.
func (e CourseEvaluation) AverageScore() float64 {
	sum := 0
	for _, s := range e.Scores() {
		sum += s
	}
	return float64(sum) / 5
}

// EvaluationLike records that a user likes an evaluation.
type EvaluationLike struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;uniqueIndex:idx_evaluation_likes_user_eval" json:"user_id"`
	EvaluationID uint      `gorm:"not null;uniqueIndex:idx_evaluation_likes_user_eval;index" json:"evaluation_id"`
	CreatedAt    time.Time `json:"created_at"`
}
