// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// User is a student account.
type User struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Username   string         `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email      string         `gorm:"size:255;uniqueIndex;not null" json:"email,omitempty"`
	Password   string         `gorm:"not null" json:"-"`
	StudentID  string         `gorm:"size:32" json:"student_id,omitempty"`
	Department string         `gorm:"size:100" json:"department"`
	Grade      int            `gorm:"default:1" json:"grade"`
	IsAdmin    bool           `gorm:"default:false" json:"is_admin"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// Public returns a copy safe to embed in content authored by the user.
func (u User) Public() User {
	u.Email = ""
	u.StudentID = ""
	return u
}
