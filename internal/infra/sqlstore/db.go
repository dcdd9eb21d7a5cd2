// Package sqlstore persists the ledger in SQLite through gorm.
package sqlstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config selects the database file.
type Config struct {
	// Path is a file path or a sqlite "file:" URI.
	Path string
	// LogMode turns on gorm's statement log.
	LogMode bool
}

// dsn makes every transaction take the write lock up front so read-modify-write
// sequences on balances cannot be interleaved by another writer.
func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_txlock=immediate&_busy_timeout=5000&_foreign_keys=on"
}

// Open creates a SQLite connection with basic tuning.
func Open(cfg Config) (*gorm.DB, error) {
	if !strings.HasPrefix(cfg.Path, "file:") && cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("Open: create db dir: %w", err)
		}
	}

	gormLogger := logger.Default
	if !cfg.LogMode {
		gormLogger = gormLogger.LogMode(logger.Silent)
	}

	db, err := gorm.Open(sqlite.Open(dsn(cfg.Path)), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("Open: open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("Open: get sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	_, _ = sqlDB.Exec("PRAGMA journal_mode = WAL;")
	_, _ = sqlDB.Exec("PRAGMA synchronous = NORMAL;")

	return db, nil
}

// Migrate creates or updates the ledger tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&accountRow{},
		&cardRow{},
		&invoiceRow{},
		&transactionRow{},
		&templateRow{},
		&categoryRow{},
		&budgetRow{},
	); err != nil {
		return fmt.Errorf("Migrate: %w", err)
	}
	return nil
}
