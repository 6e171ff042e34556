package ocr

import (
	"fmt"

	"github.com/jzielinski/invoicescan/constants"
	"github.com/jzielinski/invoicescan/internal/geometry"
)

// Line is one recognized text line from an OCR pass.
//
// Text is privacy-sensitive and must never cross the storage boundary; only
// PageStats aggregates may be persisted.
type Line struct {
	Text       string
	PageIndex  int
	BBox       geometry.BoundingBox
	Confidence float64
	Tokens     []string
	PassSource constants.PassSource
}

// NewLine validates inputs and derives the normalized token set.
func NewLine(text string, pageIndex int, bbox geometry.BoundingBox, confidence float64, pass constants.PassSource) (Line, error) {
	if pageIndex < 0 {
		return Line{}, fmt.Errorf("page index must be non-negative, got %d", pageIndex)
	}
	if confidence < 0 || confidence > 1 {
		return Line{}, fmt.Errorf("confidence must be in [0,1], got %g", confidence)
	}
	return Line{
		Text:       text,
		PageIndex:  pageIndex,
		BBox:       bbox,
		Confidence: confidence,
		Tokens:     Tokenize(text),
		PassSource: pass,
	}, nil
}

// PageStats is the only line-derived data allowed into durable storage.
type PageStats struct {
	PageIndex      int     `json:"page_index"`
	LineCount      int     `json:"line_count"`
	MeanConfidence float64 `json:"mean_confidence"`
	StandardLines  int     `json:"standard_lines"`
	SensitiveLines int     `json:"sensitive_lines"`
	MergedLines    int     `json:"merged_lines"`
}

// Stats aggregates per-page metadata from a line set. Raw text is not carried.
func Stats(lines []Line) []PageStats {
	byPage := map[int]*PageStats{}
	order := []int{}
	for _, ln := range lines {
		ps, ok := byPage[ln.PageIndex]
		if !ok {
			ps = &PageStats{PageIndex: ln.PageIndex}
			byPage[ln.PageIndex] = ps
			order = append(order, ln.PageIndex)
		}
		ps.LineCount++
		ps.MeanConfidence += ln.Confidence
		switch ln.PassSource {
		case constants.PassStandard:
			ps.StandardLines++
		case constants.PassSensitive:
			ps.SensitiveLines++
		case constants.PassMerged:
			ps.MergedLines++
		}
	}
	out := make([]PageStats, 0, len(order))
	for _, p := range order {
		ps := byPage[p]
		if ps.LineCount > 0 {
			ps.MeanConfidence /= float64(ps.LineCount)
		}
		out = append(out, *ps)
	}
	return out
}
