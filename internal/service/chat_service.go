package service

import (
	"context"
	"slices"
	"strings"

	"unitoku/internal/models"
	"unitoku/internal/repository"
	"unitoku/internal/validation"
)

const maxMessageContentLen = 10000

// MessageHook receives every stored message with the participants that should
// be told about it.
type MessageHook func(ctx context.Context, msg *models.ChatMessage, recipients []uint)

// ChatService provides chat room and message business logic.
type ChatService struct {
	chatRepo  repository.ChatRepository
	userRepo  repository.UserRepository
	onMessage MessageHook
}

// CreateGroupRoomInput is the input for creating a group room.
type CreateGroupRoomInput struct {
	UserID         uint   `json:"-"`
	Name           string `json:"name" validate:"notblank,max=100"`
	ParticipantIDs []uint `json:"participant_ids" validate:"max=50"`
}

// SendMessageInput is the input for sending a message.
type SendMessageInput struct {
	UserID  uint
	RoomID  uint
	Content string
}

// NewChatService returns a new ChatService. onMessage may be nil.
func NewChatService(chatRepo repository.ChatRepository, userRepo repository.UserRepository, onMessage MessageHook) *ChatService {
	return &ChatService{chatRepo: chatRepo, userRepo: userRepo, onMessage: onMessage}
}

// CreatePrivateRoom returns the 1:1 room between userID and otherID, creating
// it on first use.
func (s *ChatService) CreatePrivateRoom(ctx context.Context, userID, otherID uint) (*models.ChatRoom, error) {
	if otherID == 0 || otherID == userID {
		return nil, models.NewValidationError("A private room needs another user")
	}
	if _, err := s.userRepo.GetByID(ctx, otherID); err != nil {
		return nil, err
	}
	existing, err := s.chatRepo.FindPrivateRoom(ctx, userID, otherID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.chatRepo.GetRoom(ctx, existing.ID)
	}
	room := &models.ChatRoom{CreatedBy: userID}
	if err := s.chatRepo.CreateRoom(ctx, room, []uint{userID, otherID}); err != nil {
		return nil, err
	}
	return s.chatRepo.GetRoom(ctx, room.ID)
}

// CreateGroupRoom creates a named room. The creator is always a participant.
func (s *ChatService) CreateGroupRoom(ctx context.Context, in CreateGroupRoomInput) (*models.ChatRoom, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	members := []uint{in.UserID}
	for _, id := range in.ParticipantIDs {
		if id == 0 || slices.Contains(members, id) {
			continue
		}
		if _, err := s.userRepo.GetByID(ctx, id); err != nil {
			if models.IsCode(err, models.CodeNotFound) {
				return nil, models.NewValidationError("Participant does not exist")
			}
			return nil, err
		}
		members = append(members, id)
	}
	room := &models.ChatRoom{
		Name:      strings.TrimSpace(in.Name),
		IsGroup:   true,
		CreatedBy: in.UserID,
	}
	if err := s.chatRepo.CreateRoom(ctx, room, members); err != nil {
		return nil, err
	}
	svcLog.LogServiceCall(ctx, "chat", "CreateGroupRoom", map[string]interface{}{"room_id": room.ID})
	return s.chatRepo.GetRoom(ctx, room.ID)
}

// ListRooms returns the user's rooms, most recent activity first.
func (s *ChatService) ListRooms(ctx context.Context, userID uint) ([]*models.ChatRoom, error) {
	rooms, err := s.chatRepo.ListRooms(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, r := range rooms {
		publicParticipants(r)
	}
	return rooms, nil
}

// SendMessage stores a message and hands it to the message hook for every
// other participant.
func (s *ChatService) SendMessage(ctx context.Context, in SendMessageInput) (*models.ChatMessage, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, models.NewValidationError("Message content is required")
	}
	if tooLong(content, maxMessageContentLen) {
		return nil, models.NewValidationError("Message content too long (max 10000 characters)")
	}
	if err := s.requireParticipant(ctx, in.RoomID, in.UserID); err != nil {
		return nil, err
	}

	msg := &models.ChatMessage{RoomID: in.RoomID, SenderID: in.UserID, Content: content}
	if err := s.chatRepo.AddMessage(ctx, msg); err != nil {
		return nil, err
	}
	if sender, err := s.userRepo.GetByID(ctx, in.UserID); err == nil {
		pub := sender.Public()
		msg.Sender = &pub
	}

	if s.onMessage != nil {
		members, err := s.chatRepo.ParticipantIDs(ctx, in.RoomID)
		if err != nil {
			svcLog.LogServiceError(ctx, "chat", "SendMessage.ParticipantIDs", err)
			return msg, nil
		}
		recipients := make([]uint, 0, len(members))
		for _, id := range members {
			if id != in.UserID {
				recipients = append(recipients, id)
			}
		}
		s.onMessage(ctx, msg, recipients)
	}
	return msg, nil
}

// ListMessages returns a page of messages oldest first and clears the
// caller's unread count.
func (s *ChatService) ListMessages(ctx context.Context, userID, roomID uint, limit, offset int) ([]*models.ChatMessage, error) {
	if err := s.requireParticipant(ctx, roomID, userID); err != nil {
		return nil, err
	}
	msgs, err := s.chatRepo.ListMessages(ctx, roomID, limit, offset)
	if err != nil {
		return nil, err
	}
	if err := s.chatRepo.ResetUnread(ctx, roomID, userID); err != nil {
		return nil, err
	}
	for _, m := range msgs {
		if m.Sender != nil {
			pub := m.Sender.Public()
			m.Sender = &pub
		}
	}
	return msgs, nil
}

func (s *ChatService) requireParticipant(ctx context.Context, roomID, userID uint) error {
	ok, err := s.chatRepo.IsParticipant(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewForbiddenError("You are not a participant in this room")
	}
	return nil
}

func publicParticipants(r *models.ChatRoom) {
	for i := range r.Participants {
		if u := r.Participants[i].User; u != nil {
			pub := u.Public()
			r.Participants[i].User = &pub
		}
	}
}
