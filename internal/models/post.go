package models

import (
	"time"
)

// Post represents a blog post. UserID is fixed at construction.
type Post struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Title      string    `gorm:"size:100;not null" json:"title"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	DatePosted time.Time `gorm:"not null;index" json:"date_posted"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	Author     User      `gorm:"foreignKey:UserID" json:"author"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewPost builds a post owned by owner, stamped with the current time.
func NewPost(owner *User, title, content string) *Post {
	return &Post{
		Title:      title,
		Content:    content,
		DatePosted: time.Now().UTC(),
		UserID:     owner.ID,
		Author:     *owner,
	}
}

// OwnedBy reports whether user is the post's owner.
func (p *Post) OwnedBy(user *User) bool {
	return user != nil && p.UserID == user.ID
}
