package models

import "time"

// DefaultCategoryName is used when a post is created without a category.
const DefaultCategoryName = "一般"

// Category groups board posts. Lists are ordered by Order ascending.
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:50;uniqueIndex;not null" json:"name"`
	Icon        string    `gorm:"size:50" json:"icon"`
	Description string    `gorm:"size:255" json:"description"`
	Order       int       `gorm:"column:sort_order;not null;default:0" json:"order"`
	PostCount   int64     `gorm:"->;-:migration" json:"post_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
