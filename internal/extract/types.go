package extract

import (
	"github.com/jzielinski/invoicescan/constants"
	"github.com/jzielinski/invoicescan/internal/geometry"
)

// Candidate is one possible value for a field, with provenance. Identity is
// the (Value, Source, Confidence, BBox) tuple, so structurally identical
// candidates produced by different strategies collapse during ranking.
type Candidate struct {
	Value          string
	Confidence     float64
	BBox           geometry.BoundingBox
	Method         constants.ExtractionMethod
	Source         string // debug provenance, e.g. "amount:anchor:do zaplaty"
	AnchorType     string
	Region         string
	MatchedPhrases []string // keyword phrases that scored this candidate; feeds learning
	AdditionalData map[string]string
}

// FieldExtraction is the ranked result for one field. Empty (no candidates,
// zero confidence) when nothing was found. Absence is not an error.
type FieldExtraction struct {
	Field      constants.FieldType
	Best       *Candidate
	Candidates []Candidate
	Confidence float64
	Evidence   geometry.BoundingBox
	Method     constants.ExtractionMethod
}

// Empty reports whether the extraction found nothing.
func (f FieldExtraction) Empty() bool {
	return len(f.Candidates) == 0
}

func emptyExtraction(field constants.FieldType) FieldExtraction {
	return FieldExtraction{Field: field}
}
