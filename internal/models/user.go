// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// DefaultImageFile is the avatar every account starts with.
const DefaultImageFile = "default.jpg"

// User represents a registered author.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:20;uniqueIndex;not null" json:"username"`
	Email     string    `gorm:"size:120;uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"size:60;not null" json:"-"`
	ImageFile string    `gorm:"size:255;not null;default:default.jpg" json:"image_file"`
	Posts     []Post    `gorm:"foreignKey:UserID" json:"posts,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AvatarPath returns the public URL path of the user's avatar.
func (u *User) AvatarPath() string {
	file := u.ImageFile
	if file == "" {
		file = DefaultImageFile
	}
	return "/static/profile_pics/" + file
}
