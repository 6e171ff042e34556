package extract

import (
	"sort"

	"github.com/jzielinski/invoicescan/constants"
	"github.com/jzielinski/invoicescan/internal/geometry"
)

const maxCandidates = 3

// rank deduplicates, orders and caps candidates, then assembles the final
// FieldExtraction. Ordering is fully deterministic: confidence desc, method
// priority, then value, so identical inputs always produce identical output.
func rank(field constants.FieldType, candidates []Candidate) FieldExtraction {
	if len(candidates) == 0 {
		return emptyExtraction(field)
	}

	deduped := dedupe(candidates)
	sort.SliceStable(deduped, func(i, j int) bool {
		a, b := deduped[i], deduped[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		pa, pb := constants.MethodPriority(a.Method), constants.MethodPriority(b.Method)
		if pa != pb {
			return pa < pb
		}
		return a.Value < b.Value
	})

	if len(deduped) > maxCandidates {
		deduped = deduped[:maxCandidates]
	}

	best := deduped[0]
	return FieldExtraction{
		Field:      field,
		Best:       &best,
		Candidates: deduped,
		Confidence: best.Confidence,
		Evidence:   best.BBox,
		Method:     best.Method,
	}
}

// dedupe collapses candidates with equal values whose boxes overlap at least
// 0.8. The higher-confidence duplicate survives.
func dedupe(candidates []Candidate) []Candidate {
	var out []Candidate
	for _, c := range candidates {
		dup := -1
		for i, kept := range out {
			if kept.Value == c.Value && geometry.Overlaps(kept.BBox, c.BBox, geometry.DefaultOverlapThreshold) {
				dup = i
				break
			}
		}
		if dup < 0 {
			out = append(out, c)
			continue
		}
		if c.Confidence > out[dup].Confidence {
			out[dup] = c
		}
	}
	return out
}
