package extract

import (
	"github.com/jzielinski/invoicescan/constants"
)

// amountRegionY marks the start of the totals region; amounts in the lower
// part of the page are likelier to be the document total.
const amountRegionY = 0.6

func (x *Extractor) amountCandidates(vendorKey string, doc *document) []Candidate {
	tpl, hasTpl := x.vendorTemplate(vendorKey)

	var out []Candidate
	for i, ln := range doc.lines {
		raws := reAmount.FindAllString(doc.folded[i], -1)
		if len(raws) == 0 {
			continue
		}
		ctx := doc.contextFor(i)
		payScore, payMatched := x.engine.ScoreCategory(vendorKey, constants.CategoryPayDue, ctx)
		totalScore, totalMatched := x.engine.ScoreCategory(vendorKey, constants.CategoryTotal, ctx)

		for _, raw := range raws {
			value, ok := parseAmount(raw)
			if !ok {
				continue
			}

			c := Candidate{
				Value: value,
				BBox:  ln.BBox,
			}
			var ruleScore int
			bonus := 0.0

			switch {
			case payScore > 0:
				c.Method = constants.MethodAnchorBased
				c.AnchorType = "payDue"
				c.Source = "amount:anchor:payDue"
				c.MatchedPhrases = phrases(payMatched)
				ruleScore = payScore
				// pay-due anchored amounts outrank total/subtotal ones even
				// when the total context scores higher numerically
				bonus = x.model.PayDuePriorityBonus
			case totalScore > 0:
				c.Method = constants.MethodAnchorBased
				c.AnchorType = "total"
				c.Source = "amount:anchor:total"
				c.MatchedPhrases = phrases(totalMatched)
				ruleScore = totalScore
			case ln.BBox.Y >= amountRegionY:
				c.Method = constants.MethodRegionHeuristic
				c.Region = "bottom"
				c.Source = "amount:region:bottom"
			default:
				c.Method = constants.MethodPatternMatching
				c.Source = "amount:pattern"
			}

			boost := 0.0
			if hasTpl {
				if phrase, ok := learnedAnchor(tpl, ctx); ok {
					c.Method = constants.MethodTemplateBased
					c.AnchorType = "learned"
					c.Source = "amount:template:" + phrase
					boost = x.model.Boost(tpl.CorrectionCount)
				} else if c.Region != "" && c.Region == tpl.PreferredRegion {
					boost = x.model.Boost(tpl.CorrectionCount)
				}
			}

			c.Confidence = clamp01(x.model.Base(c.Method) + x.model.RuleAdjust(ruleScore) + bonus + boost)
			out = append(out, c)
		}
	}
	return out
}
