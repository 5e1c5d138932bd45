package service

import (
	"context"

	"unitoku/internal/models"
	"unitoku/internal/readhistory"
)

// HistoryService exposes the current user's read-history ledger.
type HistoryService struct {
	store *readhistory.Store
}

func NewHistoryService(store *readhistory.Store) *HistoryService {
	return &HistoryService{store: store}
}

// RecordView marks post as read by userID. Anonymous viewers are ignored.
func (s *HistoryService) RecordView(ctx context.Context, userID uint, post *models.Post) error {
	if userID == 0 || post == nil {
		return nil
	}
	return s.store.Record(ctx, userID, models.ReadHistoryEntry{
		PostID:        post.ID,
		Title:         post.Title,
		PostTimestamp: post.CreatedAt,
	})
}

// List returns the user's history, most recently read first.
func (s *HistoryService) List(ctx context.Context, userID uint) ([]models.ReadHistoryEntry, error) {
	entries, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if entries == nil {
		entries = []models.ReadHistoryEntry{}
	}
	return entries, nil
}

func (s *HistoryService) Delete(ctx context.Context, userID, postID uint) error {
	if err := s.store.Delete(ctx, userID, postID); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (s *HistoryService) Clear(ctx context.Context, userID uint) error {
	if err := s.store.Clear(ctx, userID); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
