package server

import (
	"context"
	"log/slog"

	"unitoku/internal/middleware"
	"unitoku/internal/models"
	"unitoku/internal/notifications"
)

// Event type constants prevent typos in event names.
const (
	EventPostCreated         = "post_created"
	EventPostLikeUpdated     = "post_like_updated"
	EventCommentCreated      = "comment_created"
	EventNotificationCreated = "notification_created"
	EventChatMessage         = "chat_message"
)

// publishUserEvent routes an event to one user's sockets. With Redis the event
// goes through the user's channel so every instance sees it; without Redis it
// is delivered to this process's hub directly.
func (s *Server) publishUserEvent(ctx context.Context, userID uint, eventType string, payload interface{}) {
	ev := notifications.Event{Type: eventType, Payload: payload}
	if s.notifier.Enabled() {
		if err := s.notifier.PublishUserEvent(ctx, userID, ev); err != nil {
			middleware.Logger.WarnContext(ctx, "publish user event failed",
				slog.String("type", eventType),
				slog.Any("recipient", userID),
				slog.String("error", err.Error()),
			)
		}
		return
	}
	if s.hub == nil {
		return
	}
	msg, err := ev.Encode()
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "encode event failed", slog.String("error", err.Error()))
		return
	}
	s.hub.Broadcast(userID, msg)
}

func (s *Server) publishBroadcastEvent(ctx context.Context, eventType string, payload interface{}) {
	ev := notifications.Event{Type: eventType, Payload: payload}
	if s.notifier.Enabled() {
		if err := s.notifier.PublishBroadcastEvent(ctx, ev); err != nil {
			middleware.Logger.WarnContext(ctx, "publish broadcast event failed",
				slog.String("type", eventType),
				slog.String("error", err.Error()),
			)
		}
		return
	}
	if s.hub == nil {
		return
	}
	msg, err := ev.Encode()
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "encode event failed", slog.String("error", err.Error()))
		return
	}
	s.hub.BroadcastAll(msg)
}

// onNotificationCreated pushes every stored notification to its recipient.
func (s *Server) onNotificationCreated(ctx context.Context, n *models.Notification) {
	s.publishUserEvent(ctx, n.UserID, EventNotificationCreated, n)
}

// onChatMessage pushes a sent message to the other room participants.
func (s *Server) onChatMessage(ctx context.Context, msg *models.ChatMessage, recipients []uint) {
	for _, uid := range recipients {
		s.publishUserEvent(ctx, uid, EventChatMessage, msg)
	}
}

func userSummary(user *models.User) map[string]interface{} {
	if user == nil {
		return nil
	}
	return map[string]interface{}{
		"id":       user.ID,
		"username": user.Username,
	}
}
