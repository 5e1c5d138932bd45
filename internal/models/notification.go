package models

import "time"

// NotificationType classifies persistent notifications.
type NotificationType string

const (
	NotificationLike    NotificationType = "like"
	NotificationComment NotificationType = "comment"
	NotificationSystem  NotificationType = "system"
	NotificationMention NotificationType = "mention"
)

// Notification is an in-app notice for a single recipient.
type Notification struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	UserID        uint             `gorm:"not null;index:idx_notifications_user_read" json:"user_id"`
	ActorID       *uint            `json:"actor_id,omitempty"`
	Type          NotificationType `gorm:"size:20;not null" json:"type"`
	Title         string           `gorm:"size:200;not null" json:"title"`
	Message       string           `gorm:"type:text" json:"message"`
	RelatedPostID *uint            `json:"related_post_id,omitempty"`
	IsRead        bool             `gorm:"not null;default:false;index:idx_notifications_user_read" json:"is_read"`
	CreatedAt     time.Time        `gorm:"index" json:"created_at"`
}
