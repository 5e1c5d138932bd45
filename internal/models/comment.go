package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// Comment is a reply on a post, optionally threaded under another comment.
type Comment struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Content     string         `gorm:"type:text;not null" json:"content"`
	PostID      uint           `gorm:"not null;index" json:"post_id"`
	UserID      uint           `gorm:"not null;index" json:"user_id"`
	User        *User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ParentID    *uint          `gorm:"index" json:"parent_id,omitempty"`
	LikeCount   int            `gorm:"not null;default:0" json:"like_count"`
	ReplyCount  int            `gorm:"not null;default:0" json:"reply_count"`
	IsAnonymous bool           `gorm:"default:false" json:"is_anonymous"`
	Liked       bool           `gorm:"-" json:"liked"`
	AuthorName  string         `gorm:"-" json:"author_name"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// Present fills AuthorName and hides the author of anonymous comments.
func (c *Comment) Present() {
	if c.IsAnonymous {
		c.AuthorName = AnonymousAuthorName
		c.User = nil
		return
	}
	if c.User != nil {
		pub := c.User.Public()
		c.User = &pub
		c.AuthorName = pub.Username
	}
}

// MarshalJSON omits user_id for anonymous comments.
func (c Comment) MarshalJSON() ([]byte, error) {
	type comment Comment
	out := struct {
		comment
		UserID uint `json:"user_id,omitempty"`
	}{comment: comment(c)}
	if !c.IsAnonymous {
		out.UserID = c.UserID
	}
	return json.Marshal(out)
}

// CommentLike records that a user likes a comment.
type CommentLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_comment_likes_user_comment" json:"user_id"`
	CommentID uint      `gorm:"not null;uniqueIndex:idx_comment_likes_user_comment;index" json:"comment_id"`
	CreatedAt time.Time `json:"created_at"`
}
