// Package testutil provides shared test doubles and fixtures.
package testutil

import (
	"testing"
	"time"

	"quill/internal/database"
	"quill/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB returns a migrated in-memory SQLite database private to the test.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: database.NewGormLogger(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// Every new connection to ":memory:" is a fresh database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// CreateUser inserts a user whose password is the given plain text.
func CreateUser(t testing.TB, db *gorm.DB, username, email, password string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &models.User{
		Username:  username,
		Email:     email,
		Password:  string(hash),
		ImageFile: models.DefaultImageFile,
	}
	if err := db.Omit("Posts").Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// CreatePost inserts a post owned by author dated at postedAt.
func CreatePost(t testing.TB, db *gorm.DB, author *models.User, title string, postedAt time.Time) *models.Post {
	t.Helper()

	post := models.NewPost(author, title, "Content of "+title)
	post.DatePosted = postedAt.UTC()
	if err := db.Omit("Author").Create(post).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}
	return post
}
