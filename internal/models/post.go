package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// AnonymousAuthorName is shown in place of the author for anonymous content.
const AnonymousAuthorName = "匿名"

// Post is a bulletin board post.
type Post struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Title        string         `gorm:"size:300;not null" json:"title"`
	Content      string         `gorm:"type:text;not null" json:"content"`
	UserID       uint           `gorm:"not null;index" json:"user_id"`
	User         *User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CategoryID   uint           `gorm:"not null;index" json:"category_id"`
	Category     *Category      `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	IsAnonymous  bool           `gorm:"default:false" json:"is_anonymous"`
	ImageURLs    []string       `gorm:"type:text;serializer:json" json:"image_urls"`
	LikeCount    int            `gorm:"not null;default:0" json:"like_count"`
	CommentCount int            `gorm:"not null;default:0" json:"comment_count"`
	ViewCount    int            `gorm:"not null;default:0" json:"view_count"`
	Liked        bool           `gorm:"-" json:"liked"`
	Commented    bool           `gorm:"-" json:"commented"`
	AuthorName   string         `gorm:"-" json:"author_name"`
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// Present fills AuthorName and hides the author of anonymous posts.
func (p *Post) Present() {
	if p.IsAnonymous {
		p.AuthorName = AnonymousAuthorName
		p.User = nil
		return
	}
	if p.User != nil {
		pub := p.User.Public()
		p.User = &pub
		p.AuthorName = pub.Username
	}
}

// MarshalJSON omits user_id for anonymous posts.
func (p Post) MarshalJSON() ([]byte, error) {
	type post Post
	out := struct {
		post
		UserID uint `json:"user_id,omitempty"`
	}{post: post(p)}
	if !p.IsAnonymous {
		out.UserID = p.UserID
	}
	return json.Marshal(out)
}

// PostLike records that a user likes a post. (UserID, PostID) is unique.
type PostLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_post_likes_user_post" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_post_likes_user_post;index" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Favorite bookmarks a post for a user. (UserID, PostID) is unique.
type Favorite struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_favorites_user_post" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_favorites_user_post;index" json:"post_id"`
	Post      *Post     `gorm:"foreignKey:PostID" json:"post,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// InteractionFlags is the per-user state of a post.
type InteractionFlags struct {
	Liked     bool `json:"liked"`
	Commented bool `json:"commented"`
}

// PostSort selects the ordering of post listings.
type PostSort string

const (
	SortNewest    PostSort = "newest"
	SortPopular   PostSort = "popular"
	SortCommented PostSort = "commented"
	SortViewed    PostSort = "viewed"
)

// ParsePostSort maps a query value to a sort, defaulting to SortNewest.
func ParsePostSort(s string) PostSort {
	switch PostSort(s) {
	case SortPopular, SortCommented, SortViewed:
		return PostSort(s)
	case "likes", "top":
		return SortPopular
	default:
		return SortNewest
	}
}
