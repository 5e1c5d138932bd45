package repository

import (
	"context"

	"unitoku/internal/models"
	"unitoku/internal/observability"

	"gorm.io/gorm"
)

// CourseFilter narrows a timetable listing. Zero values mean "any".
type CourseFilter struct {
	Weekday models.Weekday
	Query   string
}

// CourseRepository stores the courses of users' timetables. All reads are
// scoped to one owner.
type CourseRepository interface {
	List(ctx context.Context, userID uint, filter CourseFilter) ([]models.Course, error)
	GetByID(ctx context.Context, id uint) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id uint) error
}

type courseRepository struct {
	db     *gorm.DB
	logger *observability.RepoLogger
}

// NewCourseRepository creates a new course repository
func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db, logger: observability.NewRepoLogger("courses")}
}

// List returns the user's courses sorted by name.
func (r *courseRepository) List(ctx context.Context, userID uint, filter CourseFilter) ([]models.Course, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if filter.Weekday != "" {
		q = q.Where("weekday = ?", filter.Weekday)
	}
	if filter.Query != "" {
		cond, args := containsMatch(r.db, filter.Query, "name", "professor", "room")
		q = q.Where(cond, args...)
	}
	var courses []models.Course
	if err := q.Order("name ASC, id ASC").Find(&courses).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return courses, nil
}

func (r *courseRepository) GetByID(ctx context.Context, id uint) (*models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).First(&course, id).Error; err != nil {
		return nil, translate(err, "Course", id)
	}
	return &course, nil
}

func (r *courseRepository) Create(ctx context.Context, course *models.Course) error {
	if err := r.db.WithContext(ctx).Create(course).Error; err != nil {
		r.logger.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	r.logger.LogCreate(ctx, map[string]interface{}{"course_id": course.ID, "user_id": course.UserID})
	return nil
}

func (r *courseRepository) Update(ctx context.Context, course *models.Course) error {
	err := r.db.WithContext(ctx).Model(course).
		Select("Name", "Professor", "Room", "Weekday", "Period", "Color").
		Updates(course).Error
	if err != nil {
		r.logger.LogError(ctx, err, "update")
		return models.NewInternalError(err)
	}
	r.logger.LogUpdate(ctx, map[string]interface{}{"course_id": course.ID})
	return nil
}

// Delete removes the course along with its evaluations and their likes.
func (r *courseRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM evaluation_likes WHERE evaluation_id IN (SELECT id FROM course_evaluations WHERE course_id = ?)", id).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", id).Delete(&models.CourseEvaluation{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Course{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Course", id)
		}
		return nil
	})
	if err != nil {
		r.logger.LogError(ctx, err, "delete")
		return translate(err, "Course", id)
	}
	r.logger.LogDelete(ctx, map[string]interface{}{"course_id": id})
	return nil
}
