// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"time"

	"unitoku/internal/models"
	"unitoku/internal/service"

	"github.com/gofiber/fiber/v2"
)

type postRequest struct {
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	CategoryID  uint     `json:"category_id"`
	Hashtags    []string `json:"hashtags"`
	IsAnonymous bool     `json:"is_anonymous"`
	ImageURLs   []string `json:"image_urls"`
}

func (s *Server) listInput(c *fiber.Ctx, defaultLimit int) service.ListPostsInput {
	page := parsePagination(c, defaultLimit)
	userID, _ := s.optionalUserID(c)
	return service.ListPostsInput{
		CategoryID:    uint(max(c.QueryInt("category_id", 0), 0)),
		Query:         c.Query("q"),
		Sort:          models.ParsePostSort(c.Query("sort")),
		Limit:         page.Limit,
		Offset:        page.Offset,
		CurrentUserID: userID,
	}
}

// GetPosts handles GET /api/posts?category_id&sort&q&limit&offset
func (s *Server) GetPosts(c *fiber.Ctx) error {
	posts, err := s.postService.ListPosts(c.UserContext(), s.listInput(c, 20))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(posts)
}

// SearchPosts handles GET /api/posts/search?q=...
func (s *Server) SearchPosts(c *fiber.Ctx) error {
	posts, err := s.postService.SearchPosts(c.UserContext(), s.listInput(c, 20))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(posts)
}

// GetHotPosts handles GET /api/posts/hot. Without ?limit the service default
// of five applies.
func (s *Server) GetHotPosts(c *fiber.Ctx) error {
	userID, _ := s.optionalUserID(c)
	posts, err := s.postService.HotPosts(c.UserContext(), c.QueryInt("limit", 0), userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(posts)
}

// GetPost handles GET /api/posts/:id. Each load counts as a view.
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	userID, _ := s.optionalUserID(c)

	post, err := s.postService.GetPost(c.UserContext(), id, userID, true)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(post)
}

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req postRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	ctx := c.UserContext()

	post, err := s.postService.CreatePost(ctx, service.CreatePostInput{
		UserID:      currentUserID(c),
		Title:       req.Title,
		Content:     req.Content,
		CategoryID:  req.CategoryID,
		Hashtags:    req.Hashtags,
		IsAnonymous: req.IsAnonymous,
		ImageURLs:   req.ImageURLs,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	event := map[string]interface{}{
		"post_id":     post.ID,
		"category_id": post.CategoryID,
		"title":       post.Title,
		"created_at":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	if !post.IsAnonymous {
		event["author"] = userSummary(post.User)
	}
	s.publishBroadcastEvent(ctx, EventPostCreated, event)

	return c.Status(fiber.StatusCreated).JSON(post)
}

// UpdatePost handles PUT /api/posts/:id
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req postRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	post, err := s.postService.UpdatePost(c.UserContext(), service.UpdatePostInput{
		UserID:     currentUserID(c),
		PostID:     postID,
		Title:      req.Title,
		Content:    req.Content,
		CategoryID: req.CategoryID,
		ImageURLs:  req.ImageURLs,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.postService.DeletePost(c.UserContext(), service.DeletePostInput{
		UserID: currentUserID(c),
		PostID: postID,
	}); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post deleted successfully"})
}

// TogglePostLike handles POST /api/posts/:id/like
func (s *Server) TogglePostLike(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	ctx := c.UserContext()

	_, res, err := s.postService.ToggleLike(ctx, currentUserID(c), postID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	s.publishBroadcastEvent(ctx, EventPostLikeUpdated, map[string]interface{}{
		"post_id":    postID,
		"like_count": res.LikeCount,
	})
	return c.JSON(res)
}

// TogglePostFavorite handles POST /api/posts/:id/favorite
func (s *Server) TogglePostFavorite(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	uid := currentUserID(c)
	// 404 for missing posts rather than a foreign key error.
	if _, err := s.postService.GetPost(c.UserContext(), postID, uid, false); err != nil {
		return models.RespondWithAppError(c, err)
	}

	favorited, err := s.postService.ToggleFavorite(c.UserContext(), uid, postID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"favorited": favorited})
}

// GetFavorites handles GET /api/favorites
func (s *Server) GetFavorites(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	posts, err := s.postService.ListFavorites(c.UserContext(), currentUserID(c), page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(posts)
}
