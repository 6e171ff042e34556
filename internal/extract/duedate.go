package extract

import (
	"github.com/jzielinski/invoicescan/constants"
)

const isoDate = "2006-01-02"

// dueDateCandidates keeps anchored dates; unanchored dates are discarded
// (invoices carry issue and sale dates too) unless the document has exactly
// one date, which is kept as a weaker fallback candidate.
func (x *Extractor) dueDateCandidates(vendorKey string, doc *document) []Candidate {
	tpl, hasTpl := x.vendorTemplate(vendorKey)

	type found struct {
		lineIdx int
		value   string
	}
	var anchored []Candidate
	var unanchored []found
	totalDates := 0

	for i := range doc.lines {
		dates := findDates(doc.folded[i])
		if len(dates) == 0 {
			continue
		}
		totalDates += len(dates)
		ctx := doc.contextFor(i)
		score, matched := x.engine.ScoreCategory(vendorKey, constants.CategoryDueDate, ctx)

		for _, dm := range dates {
			value := dm.value.Format(isoDate)
			if score <= 0 {
				unanchored = append(unanchored, found{lineIdx: i, value: value})
				continue
			}
			c := Candidate{
				Value:          value,
				BBox:           doc.lines[i].BBox,
				Method:         constants.MethodAnchorBased,
				AnchorType:     "dueDate",
				Source:         "dueDate:anchor",
				MatchedPhrases: phrases(matched),
			}
			boost := 0.0
			if hasTpl {
				if phrase, ok := learnedAnchor(tpl, ctx); ok {
					c.Method = constants.MethodTemplateBased
					c.AnchorType = "learned"
					c.Source = "dueDate:template:" + phrase
					boost = x.model.Boost(tpl.CorrectionCount)
				}
			}
			c.Confidence = clamp01(x.model.Base(c.Method) + x.model.RuleAdjust(score) + boost)
			anchored = append(anchored, c)
		}
	}

	if len(anchored) == 0 && totalDates == 1 && len(unanchored) == 1 {
		f := unanchored[0]
		return []Candidate{{
			Value:      f.value,
			BBox:       doc.lines[f.lineIdx].BBox,
			Method:     constants.MethodFallback,
			Source:     "dueDate:loneDate",
			Confidence: clamp01(x.model.Base(constants.MethodFallback)),
		}}
	}
	return anchored
}
