package repository

import (
	"context"
	"log/slog"

	"github.com/jzielinski/invoicescan/internal/common"
)

// Timestamps and UUIDs are stored as RFC 3339 / canonical text so the same
// DDL runs on both engines.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS global_rulesets (
		version    INTEGER PRIMARY KEY,
		payload    TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS vendor_overrides (
		vendor_key TEXT PRIMARY KEY,
		revision   INTEGER NOT NULL,
		payload    TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS keyword_stats (
		vendor_key   TEXT NOT NULL,
		phrase       TEXT NOT NULL,
		field        TEXT NOT NULL,
		hits         INTEGER NOT NULL,
		misses       INTEGER NOT NULL,
		state        TEXT NOT NULL,
		last_seen_at TEXT NOT NULL,
		PRIMARY KEY (vendor_key, phrase, field)
	)`,
	`CREATE TABLE IF NOT EXISTS templates (
		id                     TEXT PRIMARY KEY,
		vendor_fingerprint     TEXT NOT NULL,
		amount_min             DOUBLE PRECISION,
		amount_max             DOUBLE PRECISION,
		due_day_of_month       INTEGER NOT NULL DEFAULT 0,
		currency               TEXT NOT NULL DEFAULT '',
		matched_document_count INTEGER NOT NULL DEFAULT 0,
		last_matched_at        TEXT,
		created_at             TEXT NOT NULL,
		updated_at             TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_templates_fingerprint ON templates (vendor_fingerprint)`,
	`CREATE INDEX IF NOT EXISTS idx_keyword_stats_vendor ON keyword_stats (vendor_key)`,
}

// Migrate applies the schema. Statements are idempotent, so running at every
// startup is safe.
func Migrate(ctx context.Context, db *DB, logger *slog.Logger) error {
	for _, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			logger.Error("migration failed", "error", err)
			return common.NewAppError("DB_MIGRATE", "failed to apply schema", err)
		}
	}
	logger.Info("database schema up to date")
	return nil
}
