package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"quill/internal/config"
	"quill/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestConfigurePool(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	cfg := &config.Config{
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           5,
		DBConnMaxLifetimeMinutes: 15,
	}
	require.NoError(t, configurePool(db, cfg))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
}

func TestConnectWithOptions_SQLite(t *testing.T) {
	cfg := &config.Config{
		DBDriver:     "sqlite",
		DBSQLitePath: filepath.Join(t.TempDir(), "quill.db"),
	}

	db, err := ConnectWithOptions(cfg, ConnectOptions{ApplySchema: true})
	require.NoError(t, err)

	assert.True(t, db.Migrator().HasTable(&models.User{}))
	assert.True(t, db.Migrator().HasTable(&models.Post{}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, Ping(ctx, db))
}

func TestConnectWithOptions_UnknownDriver(t *testing.T) {
	_, err := ConnectWithOptions(&config.Config{DBDriver: "oracle"}, ConnectOptions{})
	assert.Error(t, err)
}

func TestEnsureDatabase_SQLiteIsNoop(t *testing.T) {
	created, err := EnsureDatabase(context.Background(), &config.Config{DBDriver: "sqlite"})
	require.NoError(t, err)
	assert.False(t, created)
}

func TestPostgresDSN(t *testing.T) {
	cfg := &config.Config{DBHost: "db", DBPort: "5432", DBUser: "u", DBPassword: "p"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=quill sslmode=disable", PostgresDSN(cfg, "quill"))
}

func TestGormLogger_LogModeCopies(t *testing.T) {
	l := NewGormLogger(logger.Warn)
	silent := l.LogMode(logger.Silent).(*gormLogger)
	assert.Equal(t, logger.Silent, silent.level)
	assert.Equal(t, logger.Warn, l.(*gormLogger).level)
}
