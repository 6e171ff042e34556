package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jzielinski/invoicescan/internal/common"
	"github.com/jzielinski/invoicescan/internal/entity"
	"github.com/jzielinski/invoicescan/internal/keyword"
	"github.com/jzielinski/invoicescan/internal/learning"
)

// RulesetRepository persists keyword configuration: the append-only global
// ruleset versions, per-vendor overrides, and learned keyword stats.
type RulesetRepository interface {
	SaveGlobal(ctx context.Context, cfg keyword.GlobalConfig) error
	LatestGlobal(ctx context.Context) (keyword.GlobalConfig, error)
	GetGlobal(ctx context.Context, version int) (keyword.GlobalConfig, error)

	SaveVendor(ctx context.Context, ov keyword.VendorOverrides) error
	GetVendor(ctx context.Context, vendorKey string) (keyword.VendorOverrides, error)
	ListVendorKeys(ctx context.Context) ([]string, error)

	SaveStats(ctx context.Context, stats []learning.Stat) error
	ListStats(ctx context.Context, vendorKey string) ([]learning.Stat, error)
}

type rulesetRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewRulesetRepository(db *DB, logger *slog.Logger) RulesetRepository {
	return &rulesetRepository{db: db, logger: logger}
}

// SaveGlobal appends a new global ruleset version. Versions are immutable;
// writing an existing version is a conflict, not an update.
func (r *rulesetRepository) SaveGlobal(ctx context.Context, cfg keyword.GlobalConfig) error {
	if cfg.Version < 1 {
		return common.NewAppError("RULESET_SAVE", "global ruleset version must be positive", common.ErrInvalidInput)
	}
	payload, err := json.Marshal(toGlobalDoc(cfg))
	if err != nil {
		return common.WrapError(err, "encode global ruleset")
	}
	if err := validatePayload(compiledGlobalSchema, payload); err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, r.db.rebind(
		`INSERT INTO global_rulesets (version, payload, created_at) VALUES (?, ?, ?)`),
		cfg.Version, string(payload), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		r.logger.Error("failed to save global ruleset", "version", cfg.Version, "error", err)
		return common.NewAppError("RULESET_SAVE", fmt.Sprintf("version %d already exists or write failed", cfg.Version), err)
	}
	r.logger.Info("global ruleset saved", "version", cfg.Version)
	return nil
}

func (r *rulesetRepository) LatestGlobal(ctx context.Context) (keyword.GlobalConfig, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT payload FROM global_rulesets ORDER BY version DESC LIMIT 1`)
	return r.scanGlobal(row)
}

func (r *rulesetRepository) GetGlobal(ctx context.Context, version int) (keyword.GlobalConfig, error) {
	row := r.db.QueryRowContext(ctx, r.db.rebind(
		`SELECT payload FROM global_rulesets WHERE version = ?`), version)
	return r.scanGlobal(row)
}

func (r *rulesetRepository) scanGlobal(row *sql.Row) (keyword.GlobalConfig, error) {
	var payload string
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return keyword.GlobalConfig{}, common.ErrNotFound
		}
		return keyword.GlobalConfig{}, common.NewAppError("RULESET_LOAD", "failed to load global ruleset", err)
	}
	var doc entity.GlobalRulesetDoc
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return keyword.GlobalConfig{}, common.NewAppError("RULESET_DECODE", "stored global ruleset is corrupt", err)
	}
	return fromGlobalDoc(doc)
}

// SaveVendor upserts vendor overrides guarded by the revision counter: a
// write with a revision at or below the stored one is a stale snapshot and
// is rejected.
func (r *rulesetRepository) SaveVendor(ctx context.Context, ov keyword.VendorOverrides) error {
	if ov.VendorKey == "" {
		return common.NewAppError("OVERRIDES_SAVE", "vendor key must not be empty", common.ErrInvalidInput)
	}
	payload, err := json.Marshal(toOverridesDoc(ov))
	if err != nil {
		return common.WrapError(err, "encode vendor overrides")
	}
	if err := validatePayload(compiledOverridesSchema, payload); err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := r.db.ExecContext(ctx, r.db.rebind(
		`INSERT INTO vendor_overrides (vendor_key, revision, payload, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (vendor_key) DO UPDATE
		 SET revision = excluded.revision, payload = excluded.payload, updated_at = excluded.updated_at
		 WHERE vendor_overrides.revision < excluded.revision`),
		ov.VendorKey, ov.Revision, string(payload), now)
	if err != nil {
		r.logger.Error("failed to save vendor overrides", "vendor", ov.VendorKey, "error", err)
		return common.NewAppError("OVERRIDES_SAVE", "failed to save vendor overrides", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.NewAppError("OVERRIDES_STALE",
			fmt.Sprintf("revision %d for vendor %q is not newer than the stored one", ov.Revision, ov.VendorKey),
			common.ErrValidation)
	}
	return nil
}

func (r *rulesetRepository) GetVendor(ctx context.Context, vendorKey string) (keyword.VendorOverrides, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, r.db.rebind(
		`SELECT payload FROM vendor_overrides WHERE vendor_key = ?`), vendorKey).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return keyword.VendorOverrides{}, common.ErrNotFound
		}
		return keyword.VendorOverrides{}, common.NewAppError("OVERRIDES_LOAD", "failed to load vendor overrides", err)
	}
	var doc entity.VendorOverridesDoc
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return keyword.VendorOverrides{}, common.NewAppError("OVERRIDES_DECODE", "stored vendor overrides are corrupt", err)
	}
	return fromOverridesDoc(doc)
}

func (r *rulesetRepository) ListVendorKeys(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT vendor_key FROM vendor_overrides ORDER BY vendor_key`)
	if err != nil {
		return nil, common.NewAppError("OVERRIDES_LIST", "failed to list vendors", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, common.NewAppError("OVERRIDES_LIST", "failed to scan vendor key", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// SaveStats upserts a batch of stat records in one transaction.
func (r *rulesetRepository) SaveStats(ctx context.Context, stats []learning.Stat) error {
	if len(stats) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return common.NewAppError("STATS_SAVE", "failed to begin transaction", err)
	}
	defer tx.Rollback()

	query := r.db.rebind(
		`INSERT INTO keyword_stats (vendor_key, phrase, field, hits, misses, state, last_seen_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (vendor_key, phrase, field) DO UPDATE
		 SET hits = excluded.hits, misses = excluded.misses,
		     state = excluded.state, last_seen_at = excluded.last_seen_at`)
	for _, s := range stats {
		doc := toStatDoc(s)
		_, err := tx.ExecContext(ctx, query,
			doc.VendorKey, doc.Phrase, doc.Field, doc.Hits, doc.Misses, doc.State,
			doc.LastSeenAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			r.logger.Error("failed to save keyword stat", "vendor", doc.VendorKey, "phrase", doc.Phrase, "error", err)
			return common.NewAppError("STATS_SAVE", "failed to save keyword stat", err)
		}
	}
	return tx.Commit()
}

func (r *rulesetRepository) ListStats(ctx context.Context, vendorKey string) ([]learning.Stat, error) {
	rows, err := r.db.QueryContext(ctx, r.db.rebind(
		`SELECT vendor_key, phrase, field, hits, misses, state, last_seen_at
		 FROM keyword_stats WHERE vendor_key = ? ORDER BY field, phrase`), vendorKey)
	if err != nil {
		return nil, common.NewAppError("STATS_LIST", "failed to list keyword stats", err)
	}
	defer rows.Close()

	var stats []learning.Stat
	for rows.Next() {
		var doc entity.KeywordStatDoc
		var lastSeen string
		if err := rows.Scan(&doc.VendorKey, &doc.Phrase, &doc.Field, &doc.Hits, &doc.Misses, &doc.State, &lastSeen); err != nil {
			return nil, common.NewAppError("STATS_LIST", "failed to scan keyword stat", err)
		}
		if doc.LastSeenAt, err = time.Parse(time.RFC3339Nano, lastSeen); err != nil {
			return nil, common.NewAppError("STATS_LIST", "stored stat timestamp is corrupt", err)
		}
		stat, err := fromStatDoc(doc)
		if err != nil {
			return nil, err
		}
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}
