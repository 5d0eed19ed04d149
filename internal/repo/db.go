// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file contains database bootstrapping helpers for
// SQLite (pure Go driver) and schema migrations.
package repo

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-assistant-backend/internal/domain"
)

// OpenSQLite opens (or creates) a SQLite database, applies PRAGMAs, and
// installs query tracing.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Fail early if the parent directory does not exist (instead of a
	// cryptic sqlite "out of memory (14)" later).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	// Query spans ride the globally configured tracer provider; a no-op
	// provider keeps this free when tracing is disabled.
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

// encodeJSONColumns marshals the named entries of a partial-update map
// into their stored JSON text. Map-based Updates go straight to the SQL
// builder and skip the struct-level json serializer, so any value bound
// for a serializer:json column has to be encoded here first.
func encodeJSONColumns(fields map[string]any, cols ...string) error {
	for _, col := range cols {
		v, ok := fields[col]
		if !ok {
			continue
		}
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		fields[col] = string(b)
	}
	return nil
}

// AutoMigrate creates or updates the reminders and webhooks tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Reminder{},
		&domain.Webhook{},
	)
}
