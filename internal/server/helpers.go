// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"errors"

	"unitoku/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten means a helper already sent a 400; the handler must
// return nil so the ErrorHandler does not overwrite it.
var errResponseWritten = errors.New("response already written")

const maxPageSize = 100

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

// parsePagination reads ?limit&offset. Out-of-range values are clamped
// rather than rejected.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	p := Pagination{Limit: c.QueryInt("limit", defaultLimit), Offset: c.QueryInt("offset", 0)}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	p.Limit = min(p.Limit, maxPageSize)
	p.Offset = max(p.Offset, 0)
	return p
}

// paramLabels names route params in error messages.
var paramLabels = map[string]string{
	"id":     "ID",
	"postId": "post ID",
}

// parseID reads a positive integer route param. On failure it writes a 400
// and returns errResponseWritten.
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err == nil && id > 0 {
		return uint(id), nil
	}
	label, ok := paramLabels[param]
	if !ok {
		label = param
	}
	_ = models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid "+label))
	return 0, errResponseWritten
}

// currentUserID returns the authenticated user set by AuthRequired.
func currentUserID(c *fiber.Ctx) uint {
	uid, _ := c.Locals("userID").(uint)
	return uid
}

// bindJSON parses the request body into dst. On failure it writes a 400 and
// returns errResponseWritten.
func bindJSON(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
		return errResponseWritten
	}
	return nil
}
