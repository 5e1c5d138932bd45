package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"unitoku/internal/models"
	"unitoku/internal/repository"
	"unitoku/internal/validation"
)

// CourseInput is the body of course create and update requests.
type CourseInput struct {
	Name      string `json:"name" validate:"notblank,max=100"`
	Professor string `json:"professor" validate:"max=100"`
	Room      string `json:"room" validate:"max=100"`
	Weekday   string `json:"weekday" validate:"required,weekday"`
	Period    int    `json:"period" validate:"min=1,max=6"`
	Color     string `json:"color" validate:"omitempty,course_color"`
}

// CourseService manages the owner's timetable.
type CourseService struct {
	repo repository.CourseRepository
	now  func() time.Time
}

func NewCourseService(repo repository.CourseRepository) *CourseService {
	return &CourseService{repo: repo, now: time.Now}
}

// ListCourses returns the user's courses by name, optionally limited to one
// weekday and to a name, professor or room match.
func (s *CourseService) ListCourses(ctx context.Context, userID uint, weekday, query string) ([]models.Course, error) {
	filter := repository.CourseFilter{Query: strings.TrimSpace(query)}
	if weekday != "" {
		day, ok := models.ParseWeekday(weekday)
		if !ok {
			return nil, models.NewValidationError("weekday must be one of monday..friday")
		}
		filter.Weekday = day
	}
	courses, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	if courses == nil {
		courses = []models.Course{}
	}
	return courses, nil
}

// Timetable returns the weekday by period grid of the user's courses.
func (s *CourseService) Timetable(ctx context.Context, userID uint) (models.Timetable, error) {
	courses, err := s.repo.List(ctx, userID, repository.CourseFilter{})
	if err != nil {
		return models.Timetable{}, err
	}
	return models.NewTimetable(courses), nil
}

// CourseAt returns the course in one slot.
func (s *CourseService) CourseAt(ctx context.Context, userID uint, weekday string, period int) (*models.Course, error) {
	day, ok := models.ParseWeekday(weekday)
	if !ok {
		return nil, models.NewValidationError("weekday must be one of monday..friday")
	}
	if _, ok := models.PeriodTime(period); !ok {
		return nil, models.NewValidationError("period must be between 1 and 6")
	}
	t, err := s.Timetable(ctx, userID)
	if err != nil {
		return nil, err
	}
	c := t.At(day, period)
	if c == nil {
		return nil, models.NewNotFoundError("Course", fmt.Sprintf("%s/%d", day, period))
	}
	return c, nil
}

// CoursesOn returns one day's courses ordered by period.
func (s *CourseService) CoursesOn(ctx context.Context, userID uint, day models.Weekday) ([]models.Course, error) {
	courses, err := s.repo.List(ctx, userID, repository.CourseFilter{Weekday: day})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(courses, func(i, j int) bool { return courses[i].Period < courses[j].Period })
	if courses == nil {
		courses = []models.Course{}
	}
	return courses, nil
}

// Today returns the courses of the current teaching day. Weekends show monday.
func (s *CourseService) Today(ctx context.Context, userID uint) (models.Weekday, []models.Course, error) {
	day := models.WeekdayOf(s.now())
	courses, err := s.CoursesOn(ctx, userID, day)
	return day, courses, err
}

func (s *CourseService) CreateCourse(ctx context.Context, userID uint, in CourseInput) (*models.Course, error) {
	course, err := buildCourse(in)
	if err != nil {
		return nil, err
	}
	course.UserID = userID
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) UpdateCourse(ctx context.Context, userID, id uint, in CourseInput) (*models.Course, error) {
	existing, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	course, err := buildCourse(in)
	if err != nil {
		return nil, err
	}
	course.ID = existing.ID
	course.UserID = existing.UserID
	course.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) DeleteCourse(ctx context.Context, userID, id uint) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// owned loads a course and hides other users' courses as not found.
func (s *CourseService) owned(ctx context.Context, userID, id uint) (*models.Course, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.UserID != userID {
		return nil, models.NewNotFoundError("Course", id)
	}
	return c, nil
}

func buildCourse(in CourseInput) (*models.Course, error) {
	in.Weekday = strings.ToLower(strings.TrimSpace(in.Weekday))
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	color := in.Color
	if color == "" {
		color = models.DefaultCourseColor
	}
	return &models.Course{
		Name:      strings.TrimSpace(in.Name),
		Professor: strings.TrimSpace(in.Professor),
		Room:      strings.TrimSpace(in.Room),
		Weekday:   models.Weekday(in.Weekday),
		Period:    in.Period,
		Color:     color,
	}, nil
}
