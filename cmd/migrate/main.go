// Command migrate runs schema operations for the blog database.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"quill/internal/config"
	"quill/internal/database"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate <create-db|auto>")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	switch strings.ToLower(strings.TrimSpace(flag.Arg(0))) {
	case "create-db":
		created, err := database.EnsureDatabase(ctx, cfg)
		if err != nil {
			return err
		}
		if created {
			log.Printf("database %q created", cfg.DBName)
		} else {
			log.Printf("database %q already present", cfg.DBName)
		}
	case "auto":
		db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		if err := database.AutoMigrate(db); err != nil {
			return fmt.Errorf("auto migration failed: %w", err)
		}
		log.Println("automigrations applied")
	default:
		return usage()
	}

	return nil
}
