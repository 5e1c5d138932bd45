package server

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"unitoku/internal/cache"
	"unitoku/internal/middleware"
	"unitoku/internal/models"
	"unitoku/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// IssueWSTicket handles POST /api/ws/ticket. Browsers cannot send an
// Authorization header on the websocket upgrade, so they trade their token
// for a single-use ticket and pass it as ?ticket=.
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	if s.redis == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewInternalError(errors.New("redis unavailable")))
	}
	ticket := uuid.NewString()
	uid := currentUserID(c)
	if err := s.redis.Set(c.UserContext(), cache.WSTicketKey(ticket), strconv.FormatUint(uint64(uid), 10), cache.WSTicketTTL).Err(); err != nil {
		return models.RespondWithAppError(c, models.NewInternalError(err))
	}
	return c.JSON(fiber.Map{
		"ticket":     ticket,
		"expires_in": int(cache.WSTicketTTL.Seconds()),
	})
}

// consumeWSTicket atomically redeems a ticket and returns its user.
func (s *Server) consumeWSTicket(ctx context.Context, ticket string) (uint, bool) {
	if s.redis == nil || ticket == "" {
		return 0, false
	}
	val, err := s.redis.GetDel(ctx, cache.WSTicketKey(ticket)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			middleware.Logger.WarnContext(ctx, "ws ticket lookup failed", slog.String("error", err.Error()))
		}
		return 0, false
	}
	uid, err := strconv.ParseUint(val, 10, 32)
	if err != nil || uid == 0 {
		return 0, false
	}
	return uint(uid), true
}

// WebsocketHandler returns a websocket handler that registers connections with the Hub.
// Authentication is handled by route middleware and userID is read from connection locals.
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		uid, ok := conn.Locals("userID").(uint)
		if !ok || s.hub == nil {
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(uid, conn)
		if err != nil {
			middleware.Logger.Warn("websocket register failed",
				slog.Any("user_id", uid), slog.String("error", err.Error()))
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}
		defer s.hub.UnregisterClient(client)

		hello := notifications.Event{Type: "connected", Payload: fiber.Map{"user_id": uid}}
		if unread, err := s.notificationService.HasUnread(context.Background(), uid); err == nil {
			hello.Payload = fiber.Map{"user_id": uid, "has_unread": unread}
		}
		if msg, err := hello.Encode(); err == nil {
			client.TrySend([]byte(msg))
		}

		client.Serve()
	})
}
