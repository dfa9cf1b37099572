// Command main fills the blog database with demo authors and posts.
package main

import (
	"flag"
	"log"

	"quill/internal/config"
	"quill/internal/database"
	"quill/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 10, "Number of users to create")
	postsPerUser := flag.Int("posts", 8, "Number of posts per user")
	maxDays := flag.Int("days", 90, "Spread post dates over this many days")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Printf("Target: %d users, %d posts each, clean=%v\n", *numUsers, *postsPerUser, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s := seed.NewSeeder(db, seed.SeedOptions{
		Users:        *numUsers,
		PostsPerUser: *postsPerUser,
		MaxDays:      *maxDays,
	})

	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("❌ Cleanup failed: %v", err)
		}
	}

	if _, err := s.Run(); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Println("✨ All done! Your database is now populated with demo data.")
	log.Printf("📧 All seeded users have the password: %s", seed.DefaultPassword)
}
