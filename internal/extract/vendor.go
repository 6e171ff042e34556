package extract

import (
	"strings"

	"github.com/jzielinski/invoicescan/constants"
)

var vendorLabels = []string{"sprzedawca", "wystawca", "dostawca", "seller", "vendor", "supplier", "issued by"}

// headerRegionMaxY bounds the top-of-page region where the vendor name is
// printed on most invoices.
const headerRegionMaxY = 0.15

var headerNoise = []string{"faktura", "invoice", "rachunek", "paragon", "oryginal", "kopia", "duplikat", "nip", "strona", "page"}

func (x *Extractor) vendorCandidates(vendorKey string, doc *document) []Candidate {
	tpl, hasTpl := x.vendorTemplate(vendorKey)

	var out []Candidate
	for i, ln := range doc.lines {
		label, pos := matchLabel(doc.folded[i], vendorLabels)
		if pos < 0 {
			continue
		}
		value := valueAfterLabel(ln.Text, doc.folded[i], pos+len(label))
		bbox := ln.BBox
		if value == "" && i+1 < len(doc.lines) && doc.lines[i+1].PageIndex == ln.PageIndex {
			// label on its own line; the name sits on the next one
			value = strings.TrimSpace(doc.lines[i+1].Text)
			bbox = doc.lines[i+1].BBox
		}
		if value == "" {
			continue
		}
		c := Candidate{
			Value:      value,
			BBox:       bbox,
			Method:     constants.MethodAnchorBased,
			AnchorType: "vendorLabel",
			Source:     "vendor:anchor:" + label,
		}
		boost := 0.0
		if hasTpl {
			boost = x.model.Boost(tpl.CorrectionCount)
		}
		c.Confidence = clamp01(x.model.Base(c.Method) + boost)
		out = append(out, c)
	}

	// region heuristic: the first readable lines of the first page header
	headerTaken := 0
	for i, ln := range doc.lines {
		if headerTaken >= 2 {
			break
		}
		if ln.PageIndex != 0 || ln.BBox.Y > headerRegionMaxY {
			continue
		}
		if !looksLikeName(doc.folded[i]) {
			continue
		}
		c := Candidate{
			Value:  strings.TrimSpace(ln.Text),
			BBox:   ln.BBox,
			Method: constants.MethodRegionHeuristic,
			Region: "top",
			Source: "vendor:region:top",
		}
		boost := 0.0
		if hasTpl && tpl.PreferredRegion == "top" {
			boost = x.model.Boost(tpl.CorrectionCount)
		}
		c.Confidence = clamp01(x.model.Base(c.Method) + boost)
		out = append(out, c)
		headerTaken++
	}
	return out
}

// matchLabel returns the first label found in the folded line and its offset.
func matchLabel(folded string, labels []string) (string, int) {
	for _, label := range labels {
		if pos := strings.Index(folded, label); pos >= 0 {
			return label, pos
		}
	}
	return "", -1
}

// valueAfterLabel pulls the raw text following a label match. Folding never
// reorders characters, so splitting the raw text on the separator that
// follows the label is safe.
func valueAfterLabel(raw, folded string, foldedEnd int) string {
	rest := folded[foldedEnd:]
	trimmed := strings.TrimLeft(rest, " :-\t")
	if trimmed == "" {
		return ""
	}
	// take the raw suffix of the same rune length as the folded remainder
	rawRunes := []rune(raw)
	cut := len(rawRunes) - len([]rune(trimmed))
	if cut < 0 || cut >= len(rawRunes) {
		return ""
	}
	return strings.TrimSpace(string(rawRunes[cut:]))
}

// looksLikeName filters header lines down to plausible company names.
func looksLikeName(folded string) bool {
	trimmed := strings.TrimSpace(folded)
	if len(trimmed) < 3 {
		return false
	}
	for _, noise := range headerNoise {
		if strings.Contains(trimmed, noise) {
			return false
		}
	}
	letters := 0
	for _, r := range trimmed {
		if r >= 'a' && r <= 'z' {
			letters++
		}
	}
	return letters >= 3 && len(findDates(trimmed)) == 0
}
