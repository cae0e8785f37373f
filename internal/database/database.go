// Package database provides database connection and management.
package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite" // Pure Go SQLite driver (no CGO required)
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bbernstein/lacylights-console/internal/database/models"
)

// DB is the global database connection.
var DB *gorm.DB

// Config holds database configuration.
type Config struct {
	URL         string
	MaxIdleConn int
	MaxOpenConn int
	Debug       bool
}

// Connect establishes a connection to the database and migrates the schema.
func Connect(cfg Config) (*gorm.DB, error) {
	// Parse the DATABASE_URL (format: "file:./path/to/db" or just path)
	dbPath := strings.TrimPrefix(cfg.URL, "file:")

	// Ensure the directory exists
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	logLevel := logger.Silent
	if cfg.Debug {
		logLevel = logger.Info
	}
	gormLogger := logger.New(
		&log.Logger,
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true, // Better performance for reads
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	// SQLite doesn't really use connection pooling, but set reasonable values
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConn)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConn)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	DB = db

	log.Info().Str("path", dbPath).Msg("🗄️ Database connected")
	return db, nil
}

// Migrate creates or updates the show tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func Close() error {
	if DB != nil {
		sqlDB, err := DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}
