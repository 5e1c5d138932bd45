// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"unitoku/internal/models"
	"unitoku/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/users/me
// @Summary Current user profile
// @Tags users
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.User
// @Router /users/me [get]
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	user, err := s.userService.GetMe(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(user)
}

// UpdateMyProfile handles PUT /api/users/me
// @Summary Update the current user's username, department or grade
// @Tags users
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body service.UpdateProfileInput true "Profile fields"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /users/me [put]
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req service.UpdateProfileInput
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	req.UserID = currentUserID(c)

	user, err := s.userService.UpdateMe(c.UserContext(), req)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(user)
}

// GetMyComments handles GET /api/users/me/comments
// @Summary Comments written by the current user
// @Tags users
// @Security BearerAuth
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Comment
// @Router /users/me/comments [get]
func (s *Server) GetMyComments(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	comments, err := s.commentService.ListMyComments(c.UserContext(), currentUserID(c), page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(comments)
}

// GetMyPosts handles GET /api/users/me/posts
// @Summary Posts written by the current user
// @Tags users
// @Security BearerAuth
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Post
// @Router /users/me/posts [get]
func (s *Server) GetMyPosts(c *fiber.Ctx) error {
	uid := currentUserID(c)
	page := parsePagination(c, 20)
	posts, err := s.postService.ListPosts(c.UserContext(), service.ListPostsInput{
		AuthorID:      uid,
		Sort:          models.SortNewest,
		Limit:         page.Limit,
		Offset:        page.Offset,
		CurrentUserID: uid,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(posts)
}

// GetCategories handles GET /api/categories
// @Summary Board categories in display order
// @Tags categories
// @Produce json
// @Success 200 {array} models.Category
// @Router /categories [get]
func (s *Server) GetCategories(c *fiber.Ctx) error {
	categories, err := s.categoryService.ListCategories(c.UserContext())
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(categories)
}

// CreateCategory handles POST /api/categories (admin)
// @Summary Create a category
// @Tags categories
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body service.CategoryInput true "Category"
// @Success 201 {object} models.Category
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /categories [post]
func (s *Server) CreateCategory(c *fiber.Ctx) error {
	var req service.CategoryInput
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	category, err := s.categoryService.CreateCategory(c.UserContext(), currentUserID(c), req)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}

// UpdateCategory handles PUT /api/categories/:id (admin)
// @Summary Update a category
// @Tags categories
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Category ID"
// @Param request body service.CategoryInput true "Category"
// @Success 200 {object} models.Category
// @Router /categories/{id} [put]
func (s *Server) UpdateCategory(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req service.CategoryInput
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	category, err := s.categoryService.UpdateCategory(c.UserContext(), currentUserID(c), id, req)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(category)
}
