package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jzielinski/invoicescan/internal/extract"
	"github.com/jzielinski/invoicescan/internal/learning"
	"github.com/jzielinski/invoicescan/internal/repository"
)

// DocumentResult is one document's extraction outcome, as exported.
type DocumentResult struct {
	DocumentID string
	VendorKey  string
	Fields     []extract.FieldExtraction
}

// Service is a tiny façade over repositories that produces XLSX bytes for
// extraction reports.
type Service struct {
	rulesets repository.RulesetRepository
	logger   *slog.Logger
}

func NewService(rulesets repository.RulesetRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{rulesets: rulesets, logger: logger}
}

// ExportResultsXLSX renders extraction results as a workbook: one row per
// (document, field), best value first, alternatives folded into one cell.
func (s *Service) ExportResultsXLSX(results []DocumentResult) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Extractions"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Document",
		"Vendor",
		"Field",
		"Value",
		"Confidence",
		"Method",
		"Matched Phrases",
		"Alternatives",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	rows := 0
	for _, res := range results {
		for _, fe := range res.Fields {
			if fe.Empty() {
				continue
			}
			write := func(col int, v any) {
				cell, _ := excelize.CoordinatesToCellName(col, row)
				_ = f.SetCellValue(sheet, cell, v)
			}

			write(1, res.DocumentID)
			write(2, res.VendorKey)
			write(3, string(fe.Field))
			write(4, fe.Best.Value)
			write(5, fmt.Sprintf("%.2f", fe.Confidence))
			write(6, string(fe.Method))
			write(7, strings.Join(fe.Best.MatchedPhrases, ", "))

			var alts []string
			for _, c := range fe.Candidates[1:] {
				alts = append(alts, fmt.Sprintf("%s (%.2f)", c.Value, c.Confidence))
			}
			write(8, strings.Join(alts, "; "))

			row++
			rows++
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 28) // document
	_ = f.SetColWidth(sheet, "B", "B", 24) // vendor
	_ = f.SetColWidth(sheet, "C", "C", 14) // field
	_ = f.SetColWidth(sheet, "D", "D", 28) // value
	_ = f.SetColWidth(sheet, "E", "F", 14) // confidence, method
	_ = f.SetColWidth(sheet, "G", "H", 40) // phrases, alternatives

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"documents", len(results),
		"rows", rows,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// ExportLearningXLSX renders every vendor's keyword stats as a workbook, one
// row per (vendor, phrase, field).
func (s *Service) ExportLearningXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	keys, err := s.rulesets.ListVendorKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list vendors: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Keyword Stats"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{"Vendor", "Phrase", "Field", "Hits", "Misses", "State", "Last Seen"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, key := range keys {
		stats, err := s.rulesets.ListStats(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("list stats for %s: %w", key, err)
		}
		for _, st := range stats {
			writeStatRow(f, sheet, row, st)
			row++
		}
	}

	_ = f.SetColWidth(sheet, "A", "B", 28)
	_ = f.SetColWidth(sheet, "C", "C", 14)
	_ = f.SetColWidth(sheet, "D", "F", 10)
	_ = f.SetColWidth(sheet, "G", "G", 22)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.learning.xlsx.ok",
		"vendors", len(keys),
		"rows", row-2,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeStatRow(f *excelize.File, sheet string, row int, st learning.Stat) {
	write := func(col int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
	write(1, st.VendorKey)
	write(2, st.Phrase)
	write(3, string(st.Field))
	write(4, st.Hits)
	write(5, st.Misses)
	write(6, string(st.State))
	write(7, st.LastSeenAt.UTC().Format("2006-01-02 15:04:05"))
}
