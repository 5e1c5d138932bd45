package repository

import (
	"context"
	"errors"

	"unitoku/internal/models"
	"unitoku/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChatRepository defines the interface for chat data operations
type ChatRepository interface {
	FindPrivateRoom(ctx context.Context, userA, userB uint) (*models.ChatRoom, error)
	CreateRoom(ctx context.Context, room *models.ChatRoom, participantIDs []uint) error
	GetRoom(ctx context.Context, id uint) (*models.ChatRoom, error)
	ListRooms(ctx context.Context, userID uint) ([]*models.ChatRoom, error)
	IsParticipant(ctx context.Context, roomID, userID uint) (bool, error)
	ParticipantIDs(ctx context.Context, roomID uint) ([]uint, error)
	AddMessage(ctx context.Context, msg *models.ChatMessage) error
	ListMessages(ctx context.Context, roomID uint, limit, offset int) ([]*models.ChatMessage, error)
	ResetUnread(ctx context.Context, roomID, userID uint) error
}

// chatRepository implements ChatRepository
type chatRepository struct {
	db     *gorm.DB
	logger *observability.RepoLogger
}

// NewChatRepository creates a new chat repository
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db, logger: observability.NewRepoLogger("chat_rooms")}
}

// FindPrivateRoom returns the 1:1 room shared by two users, or nil.
func (r *chatRepository) FindPrivateRoom(ctx context.Context, userA, userB uint) (*models.ChatRoom, error) {
	var room models.ChatRoom
	err := r.db.WithContext(ctx).
		Joins("JOIN chat_participants pa ON pa.room_id = chat_rooms.id AND pa.user_id = ?", userA).
		Joins("JOIN chat_participants pb ON pb.room_id = chat_rooms.id AND pb.user_id = ?", userB).
		Where("chat_rooms.is_group = ?", false).
		Preload("Participants.User").
		Order("chat_rooms.id ASC").
		Take(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &room, nil
}

// CreateRoom inserts the room and its participants. Duplicate ids are ignored.
func (r *chatRepository) CreateRoom(ctx context.Context, room *models.ChatRoom, participantIDs []uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Participants").Create(room).Error; err != nil {
			return err
		}
		participants := make([]models.ChatParticipant, 0, len(participantIDs))
		seen := make(map[uint]bool, len(participantIDs))
		for _, uid := range participantIDs {
			if seen[uid] {
				continue
			}
			seen[uid] = true
			participants = append(participants, models.ChatParticipant{RoomID: room.ID, UserID: uid})
		}
		if len(participants) == 0 {
			return nil
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&participants).Error; err != nil {
			return err
		}
		room.Participants = participants
		return nil
	})
	if err != nil {
		r.logger.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	r.logger.LogCreate(ctx, map[string]interface{}{"room_id": room.ID, "participants": len(room.Participants)})
	return nil
}

func (r *chatRepository) GetRoom(ctx context.Context, id uint) (*models.ChatRoom, error) {
	var room models.ChatRoom
	if err := r.db.WithContext(ctx).Preload("Participants.User").First(&room, id).Error; err != nil {
		return nil, translate(err, "ChatRoom", id)
	}
	return &room, nil
}

// ListRooms returns the user's rooms, most recent activity first, with the
// user's unread count filled in.
func (r *chatRepository) ListRooms(ctx context.Context, userID uint) ([]*models.ChatRoom, error) {
	var rooms []*models.ChatRoom
	err := r.db.WithContext(ctx).
		Joins("JOIN chat_participants cp ON cp.room_id = chat_rooms.id AND cp.user_id = ?", userID).
		Preload("Participants.User").
		Order("COALESCE(chat_rooms.last_message_at, chat_rooms.created_at) DESC, chat_rooms.id DESC").
		Find(&rooms).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, room := range rooms {
		for _, p := range room.Participants {
			if p.UserID == userID {
				room.UnreadCount = p.UnreadCount
			}
		}
	}
	return rooms, nil
}

func (r *chatRepository) IsParticipant(ctx context.Context, roomID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ChatParticipant{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *chatRepository) ParticipantIDs(ctx context.Context, roomID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.ChatParticipant{}).
		Where("room_id = ?", roomID).
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

// AddMessage stores the message, updates the room preview and bumps the
// unread count of everyone but the sender.
func (r *chatRepository) AddMessage(ctx context.Context, msg *models.ChatMessage) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Sender").Create(msg).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.ChatRoom{}).Where("id = ?", msg.RoomID).Updates(map[string]interface{}{
			"last_message":    msg.Content,
			"last_message_at": msg.CreatedAt,
			"updated_at":      msg.CreatedAt,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&models.ChatParticipant{}).
			Where("room_id = ? AND user_id <> ?", msg.RoomID, msg.SenderID).
			UpdateColumn("unread_count", gorm.Expr("unread_count + 1")).Error
	})
	if err != nil {
		r.logger.LogError(ctx, err, "add_message")
		return models.NewInternalError(err)
	}
	return nil
}

// ListMessages returns one page of a room's messages in chronological order.
// Offset counts back from the newest message.
func (r *chatRepository) ListMessages(ctx context.Context, roomID uint, limit, offset int) ([]*models.ChatMessage, error) {
	limit, offset = clampPage(limit, offset)
	var messages []*models.ChatMessage
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Preload("Sender").
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	// Fetched newest first to get the latest page; callers expect oldest first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *chatRepository) ResetUnread(ctx context.Context, roomID, userID uint) error {
	err := r.db.WithContext(ctx).Model(&models.ChatParticipant{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		UpdateColumn("unread_count", 0).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
