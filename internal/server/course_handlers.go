package server

import (
	"unitoku/internal/models"
	"unitoku/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetCourses handles GET /api/courses?weekday&q
func (s *Server) GetCourses(c *fiber.Ctx) error {
	courses, err := s.courseService.ListCourses(c.UserContext(), currentUserID(c), c.Query("weekday"), c.Query("q"))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(courses)
}

// GetTimetable handles GET /api/courses/timetable
func (s *Server) GetTimetable(c *fiber.Ctx) error {
	t, err := s.courseService.Timetable(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(t)
}

// GetTodayCourses handles GET /api/courses/today
func (s *Server) GetTodayCourses(c *fiber.Ctx) error {
	day, courses, err := s.courseService.Today(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{
		"weekday": day,
		"periods": models.PeriodTimes(),
		"courses": courses,
	})
}

// GetCourseAtSlot handles GET /api/courses/slot?weekday&period
func (s *Server) GetCourseAtSlot(c *fiber.Ctx) error {
	course, err := s.courseService.CourseAt(c.UserContext(), currentUserID(c), c.Query("weekday"), c.QueryInt("period", 0))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(course)
}

// CreateCourse handles POST /api/courses
func (s *Server) CreateCourse(c *fiber.Ctx) error {
	var req service.CourseInput
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	course, err := s.courseService.CreateCourse(c.UserContext(), currentUserID(c), req)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(course)
}

// UpdateCourse handles PUT /api/courses/:id
func (s *Server) UpdateCourse(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req service.CourseInput
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	course, err := s.courseService.UpdateCourse(c.UserContext(), currentUserID(c), id, req)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(course)
}

// DeleteCourse handles DELETE /api/courses/:id
func (s *Server) DeleteCourse(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.courseService.DeleteCourse(c.UserContext(), currentUserID(c), id); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetEvaluations handles GET /api/courses/:id/evaluations
func (s *Server) GetEvaluations(c *fiber.Ctx) error {
	courseID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	evals, err := s.evaluationService.ListEvaluations(c.UserContext(), courseID, currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(evals)
}

// CreateEvaluation handles POST /api/courses/:id/evaluations
func (s *Server) CreateEvaluation(c *fiber.Ctx) error {
	courseID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req service.EvaluationInput
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	eval, err := s.evaluationService.CreateEvaluation(c.UserContext(), currentUserID(c), courseID, req)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(eval)
}

// GetEvaluationAverage handles GET /api/courses/:id/evaluations/average
func (s *Server) GetEvaluationAverage(c *fiber.Ctx) error {
	courseID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	avg, err := s.evaluationService.AverageScore(c.UserContext(), courseID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(avg)
}

// ToggleEvaluationLike handles POST /api/evaluations/:id/like
func (s *Server) ToggleEvaluationLike(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	res, err := s.evaluationService.ToggleLike(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(res)
}
