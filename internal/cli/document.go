package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jzielinski/invoicescan/constants"
	"github.com/jzielinski/invoicescan/internal/extract"
	"github.com/jzielinski/invoicescan/internal/geometry"
	"github.com/jzielinski/invoicescan/internal/ocr"
	"github.com/jzielinski/invoicescan/internal/worker"
)

// Document files carry OCR output for one invoice: two recognition passes of
// positioned lines. This is the only place raw line text enters the process.

type lineJSON struct {
	Text string `json:"text"`
	Page int    `json:"page"`
	BBox struct {
		X      float64 `json:"x"`
		Y      float64 `json:"y"`
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	} `json:"bbox"`
	Confidence float64 `json:"confidence"`
}

type documentJSON struct {
	DocumentID     string     `json:"document_id"`
	VendorKey      string     `json:"vendor_key"`
	StandardLines  []lineJSON `json:"standard_lines"`
	SensitiveLines []lineJSON `json:"sensitive_lines"`
}

func loadDocument(path string) (worker.Job, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return worker.Job{}, fmt.Errorf("read document: %w", err)
	}
	var doc documentJSON
	if err := json.Unmarshal(raw, &doc); err != nil {
		return worker.Job{}, fmt.Errorf("parse %s: %w", path, err)
	}

	standard, err := linesFromJSON(doc.StandardLines, constants.PassStandard)
	if err != nil {
		return worker.Job{}, fmt.Errorf("%s: %w", path, err)
	}
	sensitive, err := linesFromJSON(doc.SensitiveLines, constants.PassSensitive)
	if err != nil {
		return worker.Job{}, fmt.Errorf("%s: %w", path, err)
	}

	id := doc.DocumentID
	if id == "" {
		id = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return worker.Job{
		DocumentID: id,
		VendorKey:  doc.VendorKey,
		Lines:      ocr.MergePasses(standard, sensitive),
	}, nil
}

func linesFromJSON(lines []lineJSON, pass constants.PassSource) ([]ocr.Line, error) {
	out := make([]ocr.Line, 0, len(lines))
	for i, l := range lines {
		box, err := geometry.NewBoundingBox(l.BBox.X, l.BBox.Y, l.BBox.Width, l.BBox.Height)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
		ln, err := ocr.NewLine(l.Text, l.Page, box, l.Confidence, pass)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
		out = append(out, ln)
	}
	return out, nil
}

// collectDocuments expands arguments into document files: directories are
// scanned for *.json, files are taken as-is.
func collectDocuments(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(arg, "*.json"))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, fmt.Errorf("no document files found")
	}
	return paths, nil
}

type candidateOut struct {
	Value          string   `json:"value"`
	Confidence     float64  `json:"confidence"`
	Method         string   `json:"method"`
	MatchedPhrases []string `json:"matched_phrases,omitempty"`
}

type fieldOut struct {
	Field      string         `json:"field"`
	Confidence float64        `json:"confidence"`
	Method     string         `json:"method,omitempty"`
	Candidates []candidateOut `json:"candidates,omitempty"`
}

type documentOut struct {
	DocumentID string          `json:"document_id"`
	VendorKey  string          `json:"vendor_key,omitempty"`
	PageStats  []ocr.PageStats `json:"page_stats,omitempty"`
	Fields     []fieldOut      `json:"fields"`
}

func resultToOut(res worker.Result, stats []ocr.PageStats) documentOut {
	out := documentOut{
		DocumentID: res.DocumentID,
		VendorKey:  res.VendorKey,
		PageStats:  stats,
		Fields:     make([]fieldOut, 0, len(res.Fields)),
	}
	for _, fe := range res.Fields {
		out.Fields = append(out.Fields, fieldToOut(fe))
	}
	return out
}

func fieldToOut(fe extract.FieldExtraction) fieldOut {
	fo := fieldOut{Field: string(fe.Field), Confidence: fe.Confidence}
	if fe.Empty() {
		return fo
	}
	fo.Method = string(fe.Method)
	fo.Candidates = make([]candidateOut, len(fe.Candidates))
	for i, c := range fe.Candidates {
		fo.Candidates[i] = candidateOut{
			Value:          c.Value,
			Confidence:     c.Confidence,
			Method:         string(c.Method),
			MatchedPhrases: c.MatchedPhrases,
		}
	}
	return fo
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
