package extract

import (
	"github.com/jzielinski/invoicescan/constants"
)

var taxIDLabels = []string{"nip", "tax id", "vat id", "vat no", "tin"}

func (x *Extractor) taxIDCandidates(vendorKey string, doc *document) []Candidate {
	tpl, hasTpl := x.vendorTemplate(vendorKey)

	var out []Candidate
	for i, ln := range doc.lines {
		folded := doc.folded[i]
		// a 26-digit account line would otherwise yield bogus 10-digit hits
		if reBankAccount.MatchString(folded) {
			continue
		}
		matches := reTaxID.FindAllStringSubmatch(folded, -1)
		if len(matches) == 0 {
			continue
		}
		ctx := doc.contextFor(i)
		anchorLabel, anchorPos := matchLabel(ctx, taxIDLabels)
		anchored := anchorPos >= 0

		for _, m := range matches {
			digits := digitsOnly(m[1])
			if len(digits) != 10 {
				continue
			}
			valid := validTaxID(digits)
			if !valid && !anchored {
				// checksum-failing digits without a label are OCR noise
				continue
			}

			c := Candidate{
				Value: digits,
				BBox:  ln.BBox,
			}
			switch {
			case valid && anchored:
				c.Method = constants.MethodAnchorBased
				c.AnchorType = "taxIDLabel"
				c.Source = "taxID:anchor:" + anchorLabel
			case valid:
				c.Method = constants.MethodPatternMatching
				c.Source = "taxID:pattern"
			default:
				c.Method = constants.MethodFallback
				c.Source = "taxID:anchor:badChecksum"
				c.AnchorType = "taxIDLabel"
				c.AdditionalData = map[string]string{"checksum": "invalid"}
			}

			boost := 0.0
			if hasTpl && valid {
				boost = x.model.Boost(tpl.CorrectionCount)
			}
			c.Confidence = clamp01(x.model.Base(c.Method) + boost)
			out = append(out, c)
		}
	}
	return out
}
