package ocr

import (
	"sort"
	"strings"

	"github.com/jzielinski/invoicescan/constants"
	"github.com/jzielinski/invoicescan/internal/geometry"
)

// Two lines are duplicates when they sit on the same page, their boxes overlap
// at least this much, and their text similarity passes the floor.
const (
	dedupOverlapThreshold    = geometry.DefaultOverlapThreshold
	dedupSimilarityThreshold = 0.6
)

// MergePasses folds the standard and sensitive recognition passes over the
// same pages into one deduplicated line set. When a duplicate pair is found
// the higher-confidence line survives, tagged as merged.
func MergePasses(standard, sensitive []Line) []Line {
	merged := make([]Line, len(standard))
	copy(merged, standard)

	for _, cand := range sensitive {
		dupIdx := -1
		for i, kept := range merged {
			if isDuplicate(kept, cand) {
				dupIdx = i
				break
			}
		}
		if dupIdx < 0 {
			merged = append(merged, cand)
			continue
		}
		winner := merged[dupIdx]
		if cand.Confidence > winner.Confidence {
			winner = cand
		}
		winner.PassSource = constants.PassMerged
		merged[dupIdx] = winner
	}

	// stable reading order: page, then top edge, then left edge
	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if a.PageIndex != b.PageIndex {
			return a.PageIndex < b.PageIndex
		}
		if a.BBox.Y != b.BBox.Y {
			return a.BBox.Y < b.BBox.Y
		}
		return a.BBox.X < b.BBox.X
	})
	return merged
}

func isDuplicate(a, b Line) bool {
	if a.PageIndex != b.PageIndex {
		return false
	}
	if !geometry.Overlaps(a.BBox, b.BBox, dedupOverlapThreshold) {
		return false
	}
	return TextSimilarity(a.Text, b.Text) >= dedupSimilarityThreshold
}

// TextSimilarity scores two strings in [0,1]: exact match after trim/lower is
// 1.0, containment uses the length ratio, anything else falls back to Jaccard
// similarity over token sets.
func TextSimilarity(a, b string) float64 {
	ta := strings.ToLower(strings.TrimSpace(a))
	tb := strings.ToLower(strings.TrimSpace(b))
	if ta == tb {
		return 1.0
	}
	if ta == "" || tb == "" {
		return 0
	}
	if strings.Contains(ta, tb) || strings.Contains(tb, ta) {
		shorter, longer := len(ta), len(tb)
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		return float64(shorter) / float64(longer)
	}
	return jaccard(Tokenize(ta), Tokenize(tb))
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, tok := range a {
		set[tok] = struct{}{}
	}
	union := make(map[string]struct{}, len(a)+len(b))
	for _, tok := range a {
		union[tok] = struct{}{}
	}
	inter := 0
	seen := make(map[string]struct{}, len(b))
	for _, tok := range b {
		union[tok] = struct{}{}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		if _, ok := set[tok]; ok {
			inter++
		}
	}
	if len(union) == 0 {
		return 0
	}
	return float64(inter) / float64(len(union))
}
