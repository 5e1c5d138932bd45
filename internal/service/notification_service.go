package service

import (
	"context"

	"unitoku/internal/models"
	"unitoku/internal/repository"
)

// NotificationService stores in-app notifications and hands every new one to
// a publish hook so it can be pushed to the recipient in realtime.
type NotificationService struct {
	repo      repository.NotificationRepository
	onCreated func(ctx context.Context, n *models.Notification)
}

// NewNotificationService creates the service. onCreated may be nil.
func NewNotificationService(repo repository.NotificationRepository, onCreated func(context.Context, *models.Notification)) *NotificationService {
	return &NotificationService{repo: repo, onCreated: onCreated}
}

// Notify stores n unless it would notify the actor about their own action.
func (s *NotificationService) Notify(ctx context.Context, n *models.Notification) error {
	if n.UserID == 0 {
		return nil
	}
	if n.ActorID != nil && *n.ActorID == n.UserID {
		return nil
	}
	if err := s.repo.Create(ctx, n); err != nil {
		svcLog.LogServiceError(ctx, "notification", "Notify", err)
		return err
	}
	if s.onCreated != nil {
		s.onCreated(ctx, n)
	}
	return nil
}

func (s *NotificationService) List(ctx context.Context, userID uint, limit, offset int) ([]*models.Notification, error) {
	return s.repo.List(ctx, userID, limit, offset)
}

func (s *NotificationService) MarkAsRead(ctx context.Context, userID, id uint) error {
	return s.repo.MarkAsRead(ctx, userID, id)
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uint) (int64, error) {
	return s.repo.MarkAllAsRead(ctx, userID)
}

func (s *NotificationService) Delete(ctx context.Context, userID, id uint) error {
	return s.repo.Delete(ctx, userID, id)
}

func (s *NotificationService) HasUnread(ctx context.Context, userID uint) (bool, error) {
	return s.repo.HasUnread(ctx, userID)
}
