package server

import (
	"fmt"

	"github.com/jzielinski/invoicescan/constants"
	"github.com/jzielinski/invoicescan/internal/extract"
	"github.com/jzielinski/invoicescan/internal/geometry"
	"github.com/jzielinski/invoicescan/internal/matching"
	"github.com/jzielinski/invoicescan/internal/ocr"
)

// Wire DTOs. Incoming OCR text lives only for the request; responses carry
// values and aggregates, never the raw line set back.

type boxDTO struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type lineDTO struct {
	Text       string  `json:"text"`
	Page       int     `json:"page"`
	BBox       boxDTO  `json:"bbox"`
	Confidence float64 `json:"confidence"`
}

type extractRequest struct {
	DocumentID     string    `json:"document_id"`
	VendorKey      string    `json:"vendor_key,omitempty"`
	StandardLines  []lineDTO `json:"standard_lines"`
	SensitiveLines []lineDTO `json:"sensitive_lines,omitempty"`
}

type candidateDTO struct {
	Value          string   `json:"value"`
	Confidence     float64  `json:"confidence"`
	Method         string   `json:"method"`
	Source         string   `json:"source,omitempty"`
	Region         string   `json:"region,omitempty"`
	MatchedPhrases []string `json:"matched_phrases,omitempty"`
	BBox           boxDTO   `json:"bbox"`
}

type fieldDTO struct {
	Field      string         `json:"field"`
	Confidence float64        `json:"confidence"`
	Method     string         `json:"method,omitempty"`
	Best       *candidateDTO  `json:"best,omitempty"`
	Candidates []candidateDTO `json:"candidates,omitempty"`
}

type extractResponse struct {
	DocumentID string          `json:"document_id"`
	VendorKey  string          `json:"vendor_key,omitempty"`
	PageStats  []ocr.PageStats `json:"page_stats"`
	Fields     []fieldDTO      `json:"fields"`
}

type feedbackRequest struct {
	VendorKey                string   `json:"vendor_key"`
	Field                    string   `json:"field"`
	OriginalConfidence       float64  `json:"original_confidence"`
	AlternativeSelectedIndex *int     `json:"alternative_selected_index,omitempty"`
	WasCorrected             bool     `json:"was_corrected"`
	Method                   string   `json:"method"`
	BestPhrases              []string `json:"best_phrases,omitempty"`
	SelectedPhrases          []string `json:"selected_phrases,omitempty"`
}

type feedbackResponse struct {
	VendorKey       string `json:"vendor_key"`
	Revision        int    `json:"revision"`
	CorrectionCount int    `json:"correction_count"`
}

type matchRequest struct {
	VendorName    string  `json:"vendor_name,omitempty"`
	TaxID         string  `json:"tax_id,omitempty"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency,omitempty"`
	DueDayOfMonth int     `json:"due_day_of_month,omitempty"`
}

type matchResponse struct {
	Fingerprint       string               `json:"fingerprint"`
	Outcome           matching.Outcome     `json:"outcome"`
	TemplateID        string               `json:"template_id,omitempty"`
	PercentDifference float64              `json:"percent_difference"`
	Candidates        []matching.Candidate `json:"candidates,omitempty"`
	CreatedTemplateID string               `json:"created_template_id,omitempty"`
}

type routeRequest struct {
	Online         bool   `json:"online"`
	BackendHealth  string `json:"backend_health"`
	CloudEnabled   bool   `json:"cloud_enabled"`
	RemainingQuota int    `json:"remaining_quota,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func linesFromDTO(dtos []lineDTO, pass constants.PassSource) ([]ocr.Line, error) {
	lines := make([]ocr.Line, 0, len(dtos))
	for i, d := range dtos {
		box, err := geometry.NewBoundingBox(d.BBox.X, d.BBox.Y, d.BBox.Width, d.BBox.Height)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
		ln, err := ocr.NewLine(d.Text, d.Page, box, d.Confidence, pass)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
		lines = append(lines, ln)
	}
	return lines, nil
}

func boxToDTO(b geometry.BoundingBox) boxDTO {
	return boxDTO{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height}
}

func candidateToDTO(c extract.Candidate) candidateDTO {
	return candidateDTO{
		Value:          c.Value,
		Confidence:     c.Confidence,
		Method:         string(c.Method),
		Source:         c.Source,
		Region:         c.Region,
		MatchedPhrases: c.MatchedPhrases,
		BBox:           boxToDTO(c.BBox),
	}
}

func fieldToDTO(fe extract.FieldExtraction) fieldDTO {
	dto := fieldDTO{
		Field:      string(fe.Field),
		Confidence: fe.Confidence,
	}
	if fe.Empty() {
		return dto
	}
	dto.Method = string(fe.Method)
	best := candidateToDTO(*fe.Best)
	dto.Best = &best
	dto.Candidates = make([]candidateDTO, len(fe.Candidates))
	for i, c := range fe.Candidates {
		dto.Candidates[i] = candidateToDTO(c)
	}
	return dto
}
