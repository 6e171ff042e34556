package keyword

import (
	"github.com/jzielinski/invoicescan/constants"
	"github.com/jzielinski/invoicescan/internal/ocr"
)

// GlobalConfig is the versioned global keyword ruleset. A version is immutable:
// every change goes through WithRules, which copies into a new version. This
// keeps old extraction results auditable against the exact ruleset that
// produced them.
type GlobalConfig struct {
	Version       int
	PayDue        []Rule
	DueDate       []Rule
	Total         []Rule
	Negative      []Rule
	CurrencyHints []string
}

// Category returns the rule list for a category.
func (c GlobalConfig) Category(cat constants.KeywordCategory) []Rule {
	switch cat {
	case constants.CategoryPayDue:
		return c.PayDue
	case constants.CategoryDueDate:
		return c.DueDate
	case constants.CategoryTotal:
		return c.Total
	case constants.CategoryNegative:
		return c.Negative
	}
	return nil
}

// WithRules returns a new config version with one category replaced. The
// receiver is left untouched.
func (c GlobalConfig) WithRules(cat constants.KeywordCategory, rules []Rule) GlobalConfig {
	next := GlobalConfig{
		Version:       c.Version + 1,
		PayDue:        copyRules(c.PayDue),
		DueDate:       copyRules(c.DueDate),
		Total:         copyRules(c.Total),
		Negative:      copyRules(c.Negative),
		CurrencyHints: append([]string(nil), c.CurrencyHints...),
	}
	replaced := copyRules(rules)
	switch cat {
	case constants.CategoryPayDue:
		next.PayDue = replaced
	case constants.CategoryDueDate:
		next.DueDate = replaced
	case constants.CategoryTotal:
		next.Total = replaced
	case constants.CategoryNegative:
		next.Negative = replaced
	}
	return next
}

func copyRules(rules []Rule) []Rule {
	return append([]Rule(nil), rules...)
}

// VendorOverrides carries per-vendor keyword rules layered over the global
// config, plus the global phrases this vendor has disabled. Value type with
// update-by-replacement: mutations produce a new Revision.
type VendorOverrides struct {
	VendorKey             string
	Revision              int
	PayDue                []Rule
	DueDate               []Rule
	Total                 []Rule
	Negative              []Rule
	DisabledGlobalPhrases []string
	CorrectionCount       int // total accepted corrections; drives template boost tier
	PreferredRegion       string
	AnchorPhrases         []string // learned anchors, matched during extraction
}

// Category returns this vendor's rule list for a category.
func (v VendorOverrides) Category(cat constants.KeywordCategory) []Rule {
	switch cat {
	case constants.CategoryPayDue:
		return v.PayDue
	case constants.CategoryDueDate:
		return v.DueDate
	case constants.CategoryTotal:
		return v.Total
	case constants.CategoryNegative:
		return v.Negative
	}
	return nil
}

// IsDisabled reports whether a global phrase is disabled for this vendor.
// Comparison is diacritic-folded, matching how rules are scored.
func (v VendorOverrides) IsDisabled(phrase string) bool {
	folded := ocr.Fold(phrase)
	for _, p := range v.DisabledGlobalPhrases {
		if ocr.Fold(p) == folded {
			return true
		}
	}
	return false
}

// WithRule returns a new revision with a rule appended to a category.
func (v VendorOverrides) WithRule(cat constants.KeywordCategory, rule Rule) VendorOverrides {
	next := v.clone()
	switch cat {
	case constants.CategoryPayDue:
		next.PayDue = append(next.PayDue, rule)
	case constants.CategoryDueDate:
		next.DueDate = append(next.DueDate, rule)
	case constants.CategoryTotal:
		next.Total = append(next.Total, rule)
	case constants.CategoryNegative:
		next.Negative = append(next.Negative, rule)
	}
	return next
}

// WithDisabledPhrase returns a new revision with a global phrase disabled.
func (v VendorOverrides) WithDisabledPhrase(phrase string) VendorOverrides {
	if v.IsDisabled(phrase) {
		return v
	}
	next := v.clone()
	next.DisabledGlobalPhrases = append(next.DisabledGlobalPhrases, phrase)
	return next
}

// WithAnchorPhrase returns a new revision with a learned anchor phrase
// appended; duplicates are ignored.
func (v VendorOverrides) WithAnchorPhrase(phrase string) VendorOverrides {
	folded := ocr.Fold(phrase)
	for _, p := range v.AnchorPhrases {
		if ocr.Fold(p) == folded {
			return v
		}
	}
	next := v.clone()
	next.AnchorPhrases = append(next.AnchorPhrases, phrase)
	return next
}

// WithCorrection returns a new revision with the correction counter bumped.
func (v VendorOverrides) WithCorrection() VendorOverrides {
	next := v.clone()
	next.CorrectionCount++
	return next
}

func (v VendorOverrides) clone() VendorOverrides {
	return VendorOverrides{
		VendorKey:             v.VendorKey,
		Revision:              v.Revision + 1,
		PayDue:                copyRules(v.PayDue),
		DueDate:               copyRules(v.DueDate),
		Total:                 copyRules(v.Total),
		Negative:              copyRules(v.Negative),
		DisabledGlobalPhrases: append([]string(nil), v.DisabledGlobalPhrases...),
		CorrectionCount:       v.CorrectionCount,
		PreferredRegion:       v.PreferredRegion,
		AnchorPhrases:         append([]string(nil), v.AnchorPhrases...),
	}
}
