package keyword

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jzielinski/invoicescan/constants"
	"github.com/jzielinski/invoicescan/internal/ocr"
)

// MatchType selects how a rule phrase is tested against a context.
type MatchType string

const (
	MatchContains MatchType = "CONTAINS"
	MatchEquals   MatchType = "EQUALS"
	MatchRegex    MatchType = "REGEX"
)

// Rule is a single weighted keyword phrase. Immutable after construction.
type Rule struct {
	Phrase    string
	Weight    int
	Language  string // optional BCP-47-ish tag, e.g. "pl", "en"
	MatchType MatchType

	folded   string
	compiled *regexp.Regexp
}

// NewRule validates and constructs a rule. Regex phrases are compiled here so
// scoring never fails.
func NewRule(phrase string, weight int, language string, matchType MatchType) (Rule, error) {
	if strings.TrimSpace(phrase) == "" {
		return Rule{}, fmt.Errorf("rule phrase must not be empty")
	}
	r := Rule{
		Phrase:    phrase,
		Weight:    weight,
		Language:  language,
		MatchType: matchType,
		folded:    ocr.Fold(phrase),
	}
	switch matchType {
	case MatchContains, MatchEquals:
	case MatchRegex:
		re, err := regexp.Compile(r.folded)
		if err != nil {
			return Rule{}, fmt.Errorf("rule phrase %q is not a valid regex: %w", phrase, err)
		}
		r.compiled = re
	default:
		return Rule{}, fmt.Errorf("unknown match type %q", matchType)
	}
	return r, nil
}

// MustRule is NewRule for static rule tables; panics on invalid input.
func MustRule(phrase string, weight int, language string, matchType MatchType) Rule {
	r, err := NewRule(phrase, weight, language, matchType)
	if err != nil {
		panic(err)
	}
	return r
}

// Matches tests the rule against an already-folded context string.
func (r Rule) Matches(foldedContext string) bool {
	switch r.MatchType {
	case MatchContains:
		return strings.Contains(foldedContext, r.folded)
	case MatchEquals:
		return strings.TrimSpace(foldedContext) == r.folded
	case MatchRegex:
		return r.compiled != nil && r.compiled.MatchString(foldedContext)
	}
	return false
}

// WeightsConfig carries the default weights applied when rules are created
// without an explicit weight (shipped defaults, promoted phrases).
type WeightsConfig struct {
	PayDue   int
	DueDate  int
	Total    int
	Negative int
	Promoted int // weight given to phrases promoted by the learning loop
}

// DefaultWeights mirrors the hand-tuned values from production; overridable,
// not derived.
func DefaultWeights() WeightsConfig {
	return WeightsConfig{
		PayDue:   10,
		DueDate:  8,
		Total:    6,
		Negative: -8,
		Promoted: 12,
	}
}

// CategoryWeight returns the default weight for a rule category.
func (w WeightsConfig) CategoryWeight(cat constants.KeywordCategory) int {
	switch cat {
	case constants.CategoryPayDue:
		return w.PayDue
	case constants.CategoryDueDate:
		return w.DueDate
	case constants.CategoryTotal:
		return w.Total
	case constants.CategoryNegative:
		return w.Negative
	}
	return 0
}
