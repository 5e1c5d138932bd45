package models

import "time"

// ChatRoom is a private (two participants) or group conversation.
type ChatRoom struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	Name          string            `gorm:"size:100" json:"name"`
	IsGroup       bool              `gorm:"default:false" json:"is_group"`
	CreatedBy     uint              `gorm:"not null" json:"created_by"`
	LastMessage   string            `gorm:"type:text" json:"last_message"`
	LastMessageAt *time.Time        `gorm:"index" json:"last_message_at"`
	Participants  []ChatParticipant `gorm:"foreignKey:RoomID" json:"participants,omitempty"`
	UnreadCount   int               `gorm:"-" json:"unread_count"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// HasParticipant reports whether userID is a member of the loaded participants.
func (r ChatRoom) HasParticipant(userID uint) bool {
	for _, p := range r.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// ChatParticipant links a user to a room and tracks their unread messages.
type ChatParticipant struct {
	RoomID      uint      `gorm:"primaryKey" json:"room_id"`
	UserID      uint      `gorm:"primaryKey;index" json:"user_id"`
	User        *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	UnreadCount int       `gorm:"not null;default:0" json:"unread_count"`
	JoinedAt    time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

// ChatMessage is one message in a room.
type ChatMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RoomID    uint      `gorm:"not null;index" json:"room_id"`
	SenderID  uint      `gorm:"not null" json:"sender_id"`
	Sender    *User     `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
