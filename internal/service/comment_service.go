package service

import (
	"context"
	"regexp"
	"strings"

	"unitoku/internal/featureflags"
	"unitoku/internal/models"
	"unitoku/internal/repository"
)

const maxCommentLen = 10000

var mentionPattern = regexp.MustCompile(`@([A-Za-z0-9_-]{1,30})`)

type CommentService struct {
	commentRepo  repository.CommentRepository
	postRepo     repository.PostRepository
	userRepo     repository.UserRepository
	interactions repository.InteractionRepository
	notify       *NotificationService
	flags        *featureflags.Manager
	isAdmin      AdminChecker
}

type CommentServiceDeps struct {
	Comments     repository.CommentRepository
	Posts        repository.PostRepository
	Users        repository.UserRepository
	Interactions repository.InteractionRepository
	Notify       *NotificationService
	Flags        *featureflags.Manager
	IsAdmin      AdminChecker
}

type CreateCommentInput struct {
	UserID      uint
	PostID      uint
	ParentID    *uint
	Content     string
	IsAnonymous bool
}

type UpdateCommentInput struct {
	UserID    uint
	CommentID uint
	Content   string
}

type DeleteCommentInput struct {
	UserID    uint
	CommentID uint
}

func NewCommentService(d CommentServiceDeps) *CommentService {
	flags := d.Flags
	if flags == nil {
		flags = featureflags.NewManager("")
	}
	return &CommentService{
		commentRepo:  d.Comments,
		postRepo:     d.Posts,
		userRepo:     d.Users,
		interactions: d.Interactions,
		notify:       d.Notify,
		flags:        flags,
		isAdmin:      d.IsAdmin,
	}
}

func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if tooLong(in.Content, maxCommentLen) {
		return nil, models.NewValidationError("Comment too long (max 10000 characters)")
	}
	if in.IsAnonymous && !s.flags.Enabled(featureflags.AnonymousPosts, in.UserID) {
		return nil, models.NewValidationError("Anonymous posting is not available")
	}
	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if in.ParentID != nil {
		parent, err := s.commentRepo.GetByID(ctx, *in.ParentID)
		if models.IsCode(err, models.CodeNotFound) {
			return nil, models.NewValidationError("Parent comment does not exist")
		}
		if err != nil {
			return nil, err
		}
		if parent.PostID != in.PostID {
			return nil, models.NewValidationError("Parent comment belongs to another post")
		}
	}

	comment := &models.Comment{
		Content:     in.Content,
		UserID:      in.UserID,
		PostID:      in.PostID,
		ParentID:    in.ParentID,
		IsAnonymous: in.IsAnonymous,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	s.notifyComment(ctx, post, comment)

	created, err := s.commentRepo.GetByID(ctx, comment.ID)
	if err != nil {
		return nil, err
	}
	created.Present()
	return created, nil
}

// notifyComment tells the post author about the comment and every mentioned
// user about the mention. Failures are logged and never fail the comment.
func (s *CommentService) notifyComment(ctx context.Context, post *models.Post, c *models.Comment) {
	if s.notify == nil {
		return
	}
	// Anonymous comments carry no actor.
	var actor *uint
	if !c.IsAnonymous {
		actor = &c.UserID
	}
	related := post.ID
	notified := map[uint]bool{c.UserID: true}

	if !notified[post.UserID] {
		notified[post.UserID] = true
		if err := s.notify.Notify(ctx, &models.Notification{
			UserID:        post.UserID,
			ActorID:       actor,
			Type:          models.NotificationComment,
			Title:         "コメントがつきました",
			Message:       excerpt(c.Content, 100),
			RelatedPostID: &related,
		}); err != nil {
			svcLog.LogServiceError(ctx, "comment", "notifyComment.author", err)
		}
	}

	names := Mentions(c.Content)
	if len(names) == 0 || s.userRepo == nil {
		return
	}
	users, err := s.userRepo.GetByUsernames(ctx, names)
	if err != nil {
		svcLog.LogServiceError(ctx, "comment", "notifyComment.mentions", err)
		return
	}
	for _, u := range users {
		if notified[u.ID] {
			continue
		}
		notified[u.ID] = true
		if err := s.notify.Notify(ctx, &models.Notification{
			UserID:        u.ID,
			ActorID:       actor,
			Type:          models.NotificationMention,
			Title:         "メンションされました",
			Message:       excerpt(c.Content, 100),
			RelatedPostID: &related,
		}); err != nil {
			svcLog.LogServiceError(ctx, "comment", "notifyComment.mention", err)
		}
	}
}

// Mentions returns the distinct @usernames in content, in order of appearance.
func Mentions(content string) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range mentionPattern.FindAllStringSubmatch(content, -1) {
		name := strings.TrimRight(m[1], "_-")
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

func excerpt(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "…"
}

// ListComments returns the post's comments, oldest first.
func (s *CommentService) ListComments(ctx context.Context, postID, currentUserID uint) ([]*models.Comment, error) {
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return nil, err
	}
	comments, err := s.commentRepo.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	return s.present(ctx, comments, currentUserID)
}

// ListMyComments returns the comments written by userID, newest first.
func (s *CommentService) ListMyComments(ctx context.Context, userID uint, limit, offset int) ([]*models.Comment, error) {
	comments, err := s.commentRepo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return s.present(ctx, comments, userID)
}

func (s *CommentService) UpdateComment(ctx context.Context, in UpdateCommentInput) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}
	if comment.UserID != in.UserID {
		return nil, models.NewForbiddenError("You can only update your own comments")
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if tooLong(in.Content, maxCommentLen) {
		return nil, models.NewValidationError("Comment too long (max 10000 characters)")
	}
	comment.Content = in.Content
	if err := s.commentRepo.Update(ctx, comment); err != nil {
		return nil, err
	}
	out, err := s.present(ctx, []*models.Comment{comment}, in.UserID)
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (s *CommentService) DeleteComment(ctx context.Context, in DeleteCommentInput) error {
	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return err
	}
	if err := allowOwnerOrAdmin(ctx, s.isAdmin, in.UserID, comment.UserID, "You can only delete your own comments"); err != nil {
		return err
	}
	return s.commentRepo.Delete(ctx, in.CommentID)
}

func (s *CommentService) ToggleLike(ctx context.Context, userID, commentID uint) (LikeResult, error) {
	liked, count, err := s.interactions.ToggleCommentLike(ctx, userID, commentID)
	if err != nil {
		return LikeResult{}, err
	}
	return LikeResult{Liked: liked, LikeCount: count}, nil
}

func (s *CommentService) present(ctx context.Context, comments []*models.Comment, currentUserID uint) ([]*models.Comment, error) {
	if currentUserID != 0 && len(comments) > 0 && s.interactions != nil {
		liked, err := s.interactions.LikedCommentIDs(ctx, currentUserID, ids(comments, func(c *models.Comment) uint { return c.ID }))
		if err != nil {
			return nil, err
		}
		for _, c := range comments {
			c.Liked = liked[c.ID]
		}
	}
	for _, c := range comments {
		c.Present()
	}
	return comments, nil
}
