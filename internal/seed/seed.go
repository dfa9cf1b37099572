// Package seed fills the database with demo authors and posts. It is meant
// for development and testing only.
package seed

import (
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"quill/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password every seeded account gets.
const DefaultPassword = "password123"

// SeedOptions controls how much data the seeder creates.
type SeedOptions struct {
	Users        int
	PostsPerUser int
	// MaxDays spreads post dates over this many days before now.
	MaxDays    int
	Password   string
	BcryptCost int
	// RandSeed makes runs reproducible when non-zero.
	RandSeed int64
}

func (o SeedOptions) withDefaults() SeedOptions {
	if o.MaxDays <= 0 {
		o.MaxDays = 90
	}
	if o.Password == "" {
		o.Password = DefaultPassword
	}
	if o.BcryptCost == 0 {
		o.BcryptCost = bcrypt.DefaultCost
	}
	if o.RandSeed == 0 {
		o.RandSeed = time.Now().UnixNano()
	}
	return o
}

// Seeder creates authors and posts.
type Seeder struct {
	db    *gorm.DB
	opts  SeedOptions
	faker *gofakeit.Faker
}

func NewSeeder(db *gorm.DB, opts SeedOptions) *Seeder {
	opts = opts.withDefaults()
	return &Seeder{db: db, opts: opts, faker: gofakeit.New(opts.RandSeed)}
}

// ClearAll removes every post and user.
func (s *Seeder) ClearAll() error {
	if err := s.db.Where("1 = 1").Delete(&models.Post{}).Error; err != nil {
		return fmt.Errorf("clear posts: %w", err)
	}
	if err := s.db.Where("1 = 1").Delete(&models.User{}).Error; err != nil {
		return fmt.Errorf("clear users: %w", err)
	}
	log.Println("🧹 Cleared posts and users")
	return nil
}

// Run seeds users and then their posts.
func (s *Seeder) Run() ([]*models.User, error) {
	users, err := s.SeedUsers(s.opts.Users)
	if err != nil {
		return nil, err
	}
	if _, err := s.SeedPosts(users, s.opts.PostsPerUser); err != nil {
		return nil, err
	}
	return users, nil
}

// SeedUsers creates n accounts sharing the configured password.
func (s *Seeder) SeedUsers(n int) ([]*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(s.opts.Password), s.opts.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var existing int64
	if err := s.db.Model(&models.User{}).Count(&existing).Error; err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		username := s.username(int(existing) + i + 1)
		users = append(users, &models.User{
			Username:  username,
			Email:     username + "@" + s.faker.DomainName(),
			Password:  string(hash),
			ImageFile: models.DefaultImageFile,
		})
	}
	if len(users) == 0 {
		return users, nil
	}

	if err := s.db.Omit("Posts").CreateInBatches(users, 100).Error; err != nil {
		return nil, fmt.Errorf("create users: %w", err)
	}
	log.Printf("👤 Created %d users", len(users))
	return users, nil
}

// username builds a unique, lower-case name of at most 20 characters.
func (s *Seeder) username(n int) string {
	suffix := fmt.Sprintf("_%d", n)
	base := strings.ToLower(s.faker.FirstName())
	base = strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' {
			return r
		}
		return -1
	}, base)
	if base == "" {
		base = "user"
	}
	if limit := 20 - len(suffix); len(base) > limit {
		base = base[:limit]
	}
	return base + suffix
}

// SeedPosts creates perUser posts for each user with dates spread over the
// configured window.
func (s *Seeder) SeedPosts(users []*models.User, perUser int) ([]*models.Post, error) {
	posts := make([]*models.Post, 0, len(users)*perUser)
	now := time.Now().UTC()
	window := time.Duration(s.opts.MaxDays) * 24 * time.Hour

	for _, user := range users {
		for i := 0; i < perUser; i++ {
			post := models.NewPost(user, s.title(), s.faker.Paragraph(2, 4, 12, "\n\n"))
			minutesBack := s.faker.Number(0, int(window/time.Minute))
			post.DatePosted = now.Add(-time.Duration(minutesBack) * time.Minute)
			posts = append(posts, post)
		}
	}
	if len(posts) == 0 {
		return posts, nil
	}

	if err := s.db.Omit("Author").CreateInBatches(posts, 100).Error; err != nil {
		return nil, fmt.Errorf("create posts: %w", err)
	}
	log.Printf("📝 Created %d posts", len(posts))
	return posts, nil
}

func (s *Seeder) title() string {
	title := strings.TrimSuffix(s.faker.Sentence(s.faker.Number(3, 8)), ".")
	if utf8.RuneCountInString(title) > 100 {
		title = string([]rune(title)[:100])
	}
	return title
}
