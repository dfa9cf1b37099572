// Package bootstrap wires the runtime dependencies the server needs.
package bootstrap

import (
	"fmt"
	"log"

	"quill/internal/cache"
	"quill/internal/config"
	"quill/internal/database"
	"quill/internal/models"
	"quill/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedDemo fills an empty development database with demo content.
	SeedDemo bool
}

// InitRuntime connects to DB and Redis and optionally seeds demo content.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if opts.SeedDemo && !cfg.IsProduction() {
		if err := seedDemoIfEmpty(db, seed.SeedOptions{Users: 5, PostsPerUser: 6}); err != nil {
			return nil, nil, fmt.Errorf("failed to seed demo content: %w", err)
		}
	}

	return db, r, nil
}

func seedDemoIfEmpty(db *gorm.DB, opts seed.SeedOptions) error {
	var users int64
	if err := db.Model(&models.User{}).Count(&users).Error; err != nil {
		return err
	}
	if users > 0 {
		return nil
	}

	log.Println("empty database, seeding demo content")
	_, err := seed.NewSeeder(db, opts).Run()
	return err
}
