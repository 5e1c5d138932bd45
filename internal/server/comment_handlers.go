package server

import (
	"time"

	"unitoku/internal/models"
	"unitoku/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetComments handles GET /api/posts/:id/comments
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	userID, _ := s.optionalUserID(c)

	comments, err := s.commentService.ListComments(c.UserContext(), postID, userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(comments)
}

// CreateComment handles POST /api/posts/:id/comments
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Content     string `json:"content"`
		ParentID    *uint  `json:"parent_id"`
		IsAnonymous bool   `json:"is_anonymous"`
	}
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	ctx := c.UserContext()

	comment, err := s.commentService.CreateComment(ctx, service.CreateCommentInput{
		UserID:      currentUserID(c),
		PostID:      postID,
		ParentID:    req.ParentID,
		Content:     req.Content,
		IsAnonymous: req.IsAnonymous,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	s.publishBroadcastEvent(ctx, EventCommentCreated, map[string]interface{}{
		"post_id":    postID,
		"comment_id": comment.ID,
		"parent_id":  comment.ParentID,
		"created_at": time.Now().UTC().Format(time.RFC3339Nano),
	})
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// UpdateComment handles PUT /api/comments/:id
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	commentID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	comment, err := s.commentService.UpdateComment(c.UserContext(), service.UpdateCommentInput{
		UserID:    currentUserID(c),
		CommentID: commentID,
		Content:   req.Content,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(comment)
}

// DeleteComment handles DELETE /api/comments/:id
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	commentID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.commentService.DeleteComment(c.UserContext(), service.DeleteCommentInput{
		UserID:    currentUserID(c),
		CommentID: commentID,
	}); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Comment deleted successfully"})
}

// ToggleCommentLike handles POST /api/comments/:id/like
func (s *Server) ToggleCommentLike(c *fiber.Ctx) error {
	commentID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	res, err := s.commentService.ToggleLike(c.UserContext(), currentUserID(c), commentID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(res)
}

// GetReadHistory handles GET /api/history
func (s *Server) GetReadHistory(c *fiber.Ctx) error {
	entries, err := s.historyService.List(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(entries)
}

// ClearReadHistory handles DELETE /api/history
func (s *Server) ClearReadHistory(c *fiber.Ctx) error {
	if err := s.historyService.Clear(c.UserContext(), currentUserID(c)); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteReadHistoryEntry handles DELETE /api/history/:postId
func (s *Server) DeleteReadHistoryEntry(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}
	if err := s.historyService.Delete(c.UserContext(), currentUserID(c), postID); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
