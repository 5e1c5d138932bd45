// Package service holds the business rules of the board, timetable, chat and
// account features. Handlers call services; services call repositories.
package service

import (
	"context"
	"unicode/utf8"

	"unitoku/internal/models"
	"unitoku/internal/observability"
)

// AdminChecker reports whether a user may moderate other users' content.
type AdminChecker func(ctx context.Context, userID uint) (bool, error)

var svcLog = observability.NewStructuredLogger()

// allowOwnerOrAdmin returns nil when userID owns the resource or is an admin.
func allowOwnerOrAdmin(ctx context.Context, isAdmin AdminChecker, userID, ownerID uint, msg string) error {
	if userID == ownerID {
		return nil
	}
	if isAdmin != nil {
		admin, err := isAdmin(ctx, userID)
		if err != nil {
			return err
		}
		if admin {
			return nil
		}
	}
	return models.NewForbiddenError(msg)
}

func tooLong(s string, max int) bool {
	return utf8.RuneCountInString(s) > max
}

func ids[T any](items []T, id func(T) uint) []uint {
	out := make([]uint, len(items))
	for i, it := range items {
		out[i] = id(it)
	}
	return out
}
