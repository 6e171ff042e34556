package repository

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/jzielinski/invoicescan/constants"
	"github.com/jzielinski/invoicescan/internal/common"
	"github.com/jzielinski/invoicescan/internal/keyword"
	"github.com/jzielinski/invoicescan/internal/learning"
	"github.com/jzielinski/invoicescan/internal/ocr"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), common.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"}, slog.Default())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close(slog.Default()) })
	if err := Migrate(context.Background(), db, slog.Default()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestRuleset_GlobalRoundTrip(t *testing.T) {
	repo := NewRulesetRepository(newTestDB(t), slog.Default())
	ctx := context.Background()

	cfg := keyword.Defaults()
	if err := repo.SaveGlobal(ctx, cfg); err != nil {
		t.Fatalf("save global: %v", err)
	}

	loaded, err := repo.LatestGlobal(ctx)
	if err != nil {
		t.Fatalf("latest global: %v", err)
	}
	if loaded.Version != cfg.Version {
		t.Errorf("version = %d, want %d", loaded.Version, cfg.Version)
	}
	if len(loaded.PayDue) != len(cfg.PayDue) {
		t.Fatalf("pay-due rules = %d, want %d", len(loaded.PayDue), len(cfg.PayDue))
	}
	// rules must come back functional, not just structurally equal
	r0 := loaded.PayDue[0]
	if r0.MatchType == keyword.MatchContains && !r0.Matches(ocr.Fold(r0.Phrase)) {
		t.Error("reloaded rule lost its folded form")
	}
}

func TestRuleset_GlobalVersionsAreAppendOnly(t *testing.T) {
	repo := NewRulesetRepository(newTestDB(t), slog.Default())
	ctx := context.Background()

	cfg := keyword.Defaults()
	if err := repo.SaveGlobal(ctx, cfg); err != nil {
		t.Fatalf("save global: %v", err)
	}
	if err := repo.SaveGlobal(ctx, cfg); err == nil {
		t.Error("rewriting an existing version should fail")
	}

	next := cfg.WithRules(constants.CategoryTotal, nil)
	if err := repo.SaveGlobal(ctx, next); err != nil {
		t.Fatalf("save next version: %v", err)
	}
	latest, err := repo.LatestGlobal(ctx)
	if err != nil {
		t.Fatalf("latest global: %v", err)
	}
	if latest.Version != next.Version {
		t.Errorf("latest version = %d, want %d", latest.Version, next.Version)
	}
	if len(latest.Total) != 0 {
		t.Errorf("cleared category should reload empty, got %d rules", len(latest.Total))
	}
	old, err := repo.GetGlobal(ctx, cfg.Version)
	if err != nil {
		t.Fatalf("old version should remain readable: %v", err)
	}
	if len(old.Total) == 0 {
		t.Error("old version content should be untouched")
	}
}

func TestRuleset_LatestGlobalEmpty(t *testing.T) {
	repo := NewRulesetRepository(newTestDB(t), slog.Default())
	if _, err := repo.LatestGlobal(context.Background()); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("empty table should be ErrNotFound, got %v", err)
	}
}

func TestRuleset_VendorRevisionGuard(t *testing.T) {
	repo := NewRulesetRepository(newTestDB(t), slog.Default())
	ctx := context.Background()

	ov := keyword.VendorOverrides{VendorKey: "nip:7740001454"}
	ov = ov.WithDisabledPhrase("suma") // revision 1
	if err := repo.SaveVendor(ctx, ov); err != nil {
		t.Fatalf("save vendor: %v", err)
	}

	// same revision again is a stale snapshot
	if err := repo.SaveVendor(ctx, ov); err == nil {
		t.Error("stale revision should be rejected")
	}

	ov2 := ov.WithCorrection() // revision 2
	if err := repo.SaveVendor(ctx, ov2); err != nil {
		t.Fatalf("save newer revision: %v", err)
	}

	loaded, err := repo.GetVendor(ctx, "nip:7740001454")
	if err != nil {
		t.Fatalf("get vendor: %v", err)
	}
	if loaded.Revision != ov2.Revision || loaded.CorrectionCount != 1 {
		t.Errorf("loaded = %+v, want revision %d with 1 correction", loaded, ov2.Revision)
	}
	if !loaded.IsDisabled("suma") {
		t.Error("disabled phrase lost in round trip")
	}

	keys, err := repo.ListVendorKeys(ctx)
	if err != nil || len(keys) != 1 || keys[0] != "nip:7740001454" {
		t.Errorf("vendor keys = %v err = %v", keys, err)
	}
}

func TestRuleset_VendorNotFound(t *testing.T) {
	repo := NewRulesetRepository(newTestDB(t), slog.Default())
	if _, err := repo.GetVendor(context.Background(), "ghost"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("unknown vendor should be ErrNotFound, got %v", err)
	}
}

func TestRuleset_StatsRoundTrip(t *testing.T) {
	repo := NewRulesetRepository(newTestDB(t), slog.Default())
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	s := learning.NewStat("acme", "do zapłaty", constants.FieldAmount, now)
	s = s.WithHit(now).WithHit(now).WithHit(now)
	if err := repo.SaveStats(ctx, []learning.Stat{s}); err != nil {
		t.Fatalf("save stats: %v", err)
	}

	stats, err := repo.ListStats(ctx, "acme")
	if err != nil {
		t.Fatalf("list stats: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("stats = %d, want 1", len(stats))
	}
	got := stats[0]
	if got.Hits != 3 || got.State != constants.StatPromoted || got.Field != constants.FieldAmount {
		t.Errorf("round trip lost data: %+v", got)
	}
	if !got.LastSeenAt.Equal(now) {
		t.Errorf("last seen = %v, want %v", got.LastSeenAt, now)
	}

	// upsert overwrites counters in place
	s = s.WithMiss(now.Add(time.Hour))
	if err := repo.SaveStats(ctx, []learning.Stat{s}); err != nil {
		t.Fatalf("save stats again: %v", err)
	}
	stats, _ = repo.ListStats(ctx, "acme")
	if len(stats) != 1 || stats[0].Misses != 1 {
		t.Errorf("upsert should overwrite, got %+v", stats)
	}
}
