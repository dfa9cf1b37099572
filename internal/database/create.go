package database

import (
	"context"
	"fmt"

	"quill/internal/config"

	"github.com/jackc/pgx/v5"
)

// EnsureDatabase creates the configured PostgreSQL database when it does not
// exist yet. It connects through the "postgres" maintenance database.
// It reports whether the database was created.
func EnsureDatabase(ctx context.Context, cfg *config.Config) (bool, error) {
	if cfg.DBDriver == "sqlite" {
		return false, nil
	}

	conn, err := pgx.Connect(ctx, PostgresDSN(cfg, "postgres"))
	if err != nil {
		return false, fmt.Errorf("connect maintenance database: %w", err)
	}
	defer conn.Close(ctx)

	var exists bool
	if err := conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, cfg.DBName).Scan(&exists); err != nil {
		return false, fmt.Errorf("check database %q: %w", cfg.DBName, err)
	}
	if exists {
		return false, nil
	}

	if _, err := conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{cfg.DBName}.Sanitize()); err != nil {
		return false, fmt.Errorf("create database %q: %w", cfg.DBName, err)
	}
	return true, nil
}
