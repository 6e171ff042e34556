package extract

import (
	"github.com/jzielinski/invoicescan/constants"
)

var bankAccountLabels = []string{"nr rachunku", "numer rachunku", "konto", "rachunek", "account", "iban"}

func (x *Extractor) bankAccountCandidates(vendorKey string, doc *document) []Candidate {
	tpl, hasTpl := x.vendorTemplate(vendorKey)

	var out []Candidate
	for i, ln := range doc.lines {
		matches := reBankAccount.FindAllString(doc.folded[i], -1)
		if len(matches) == 0 {
			continue
		}
		ctx := doc.contextFor(i)
		anchorLabel, anchorPos := matchLabel(ctx, bankAccountLabels)
		anchored := anchorPos >= 0

		for _, raw := range matches {
			digits := digitsOnly(raw)
			if len(digits) != 26 {
				continue
			}
			valid := validBankAccount(digits)
			if !valid && !anchored {
				continue
			}

			c := Candidate{
				Value: digits,
				BBox:  ln.BBox,
			}
			switch {
			case valid && anchored:
				c.Method = constants.MethodAnchorBased
				c.AnchorType = "accountLabel"
				c.Source = "bankAccount:anchor:" + anchorLabel
			case valid:
				c.Method = constants.MethodPatternMatching
				c.Source = "bankAccount:pattern"
			default:
				c.Method = constants.MethodFallback
				c.AnchorType = "accountLabel"
				c.Source = "bankAccount:anchor:badChecksum"
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
