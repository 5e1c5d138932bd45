// Package repository provides data access layer implementations for the application.
package repository

import (
	"errors"
	"strings"

	"unitoku/internal/models"

	"gorm.io/gorm"
)

// isPostgres reports whether db talks to Postgres. Tests run the same
// repositories against sqlite, which lacks GREATEST and ILIKE.
func isPostgres(db *gorm.DB) bool {
	return db.Dialector.Name() == "postgres"
}

// clampedDecrement returns an expression decrementing column without going below zero.
func clampedDecrement(db *gorm.DB, column string) string {
	if isPostgres(db) {
		return "GREATEST(" + column + " - 1, 0)"
	}
	return "MAX(" + column + " - 1, 0)"
}

// containsMatch returns a case-insensitive substring condition over columns,
// joined with OR, and the bind values for it.
func containsMatch(db *gorm.DB, query string, columns ...string) (string, []any) {
	op := "LIKE"
	if isPostgres(db) {
		op = "ILIKE"
	}
	pattern := "%" + escapeLike(query) + "%"
	parts := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, col := range columns {
		parts[i] = col + " " + op + ` ? ESCAPE '\'`
		args[i] = pattern
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	// PostgreSQL unique violation SQLSTATE 23505
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "23505")
}

// translate maps gorm.ErrRecordNotFound to NOT_FOUND and wraps anything else as internal.
func translate(err error, resource string, id any) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return models.NewInternalError(err)
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
