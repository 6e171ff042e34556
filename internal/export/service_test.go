package export

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jzielinski/invoicescan/constants"
	"github.com/jzielinski/invoicescan/internal/common"
	"github.com/jzielinski/invoicescan/internal/extract"
	"github.com/jzielinski/invoicescan/internal/keyword"
	"github.com/jzielinski/invoicescan/internal/learning"
	"github.com/jzielinski/invoicescan/internal/repository"
)

func newRulesets(t *testing.T) repository.RulesetRepository {
	t.Helper()
	db, err := repository.Open(context.Background(),
		common.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"}, slog.Default())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close(slog.Default()) })
	if err := repository.Migrate(context.Background(), db, slog.Default()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repository.NewRulesetRepository(db, slog.Default())
}

func TestExportResultsXLSX(t *testing.T) {
	svc := NewService(newRulesets(t), slog.Default())

	best := extract.Candidate{Value: "1234.56", Confidence: 0.91, MatchedPhrases: []string{"do zapłaty"}}
	alt := extract.Candidate{Value: "999.00", Confidence: 0.55}
	results := []DocumentResult{{
		DocumentID: "inv-001",
		VendorKey:  "nip:7740001454",
		Fields: []extract.FieldExtraction{
			{
				Field:      constants.FieldAmount,
				Best:       &best,
				Candidates: []extract.Candidate{best, alt},
				Confidence: 0.91,
				Method:     constants.MethodAnchorBased,
			},
			{Field: constants.FieldDueDate}, // empty, must be skipped
		},
	}}

	raw, err := svc.ExportResultsXLSX(results)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Extractions")
	if err != nil {
		t.Fatalf("read sheet: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header plus one data row", len(rows))
	}
	got := rows[1]
	if got[0] != "inv-001" || got[3] != "1234.56" || got[5] != string(constants.MethodAnchorBased) {
		t.Errorf("data row = %v", got)
	}
	if got[7] != "999.00 (0.55)" {
		t.Errorf("alternatives cell = %q", got[7])
	}
}

func TestExportLearningXLSX(t *testing.T) {
	rulesets := newRulesets(t)
	svc := NewService(rulesets, slog.Default())
	ctx := context.Background()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	stat := learning.NewStat("nip:7740001454", "do zapłaty", constants.FieldAmount, now).WithHit(now)
	if err := rulesets.SaveStats(ctx, []learning.Stat{stat}); err != nil {
		t.Fatalf("save stats: %v", err)
	}
	// stats are grouped under vendors that have overrides rows
	ov := keyword.VendorOverrides{VendorKey: "nip:7740001454"}.WithCorrection()
	if err := rulesets.SaveVendor(ctx, ov); err != nil {
		t.Fatalf("save vendor: %v", err)
	}

	raw, err := svc.ExportLearningXLSX(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Keyword Stats")
	if err != nil {
		t.Fatalf("read sheet: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header plus one data row", len(rows))
	}
	if rows[1][1] != "do zapłaty" || rows[1][3] != "1" {
		t.Errorf("stat row = %v", rows[1])
	}
}
