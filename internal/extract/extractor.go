package extract

import (
	"log/slog"
	"strings"

	"github.com/jzielinski/invoicescan/constants"
	"github.com/jzielinski/invoicescan/internal/keyword"
	"github.com/jzielinski/invoicescan/internal/ocr"
)

// Extractor turns a normalized line set into ranked field candidates. All
// methods are pure with respect to the line set: re-running extraction over
// unchanged lines and rulesets yields identical results.
type Extractor struct {
	engine    *keyword.Engine
	overrides keyword.OverridesProvider
	model     ConfidenceModel
	logger    *slog.Logger
}

// New builds an extractor. The overrides provider supplies learned vendor
// templates for confidence boosts; nil disables boosting.
func New(engine *keyword.Engine, overrides keyword.OverridesProvider, model ConfidenceModel, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{engine: engine, overrides: overrides, model: model, logger: logger}
}

// Extract runs every field strategy over the line set.
func (x *Extractor) Extract(vendorKey string, lines []ocr.Line) map[constants.FieldType]FieldExtraction {
	doc := newDocument(lines)
	out := make(map[constants.FieldType]FieldExtraction, len(constants.FieldTypes()))
	for _, field := range constants.FieldTypes() {
		out[field] = x.extractField(vendorKey, field, doc)
	}
	return out
}

// ExtractField runs a single field strategy.
func (x *Extractor) ExtractField(vendorKey string, field constants.FieldType, lines []ocr.Line) FieldExtraction {
	return x.extractField(vendorKey, field, newDocument(lines))
}

func (x *Extractor) extractField(vendorKey string, field constants.FieldType, doc *document) FieldExtraction {
	var candidates []Candidate
	switch field {
	case constants.FieldAmount:
		candidates = x.amountCandidates(vendorKey, doc)
	case constants.FieldDueDate:
		candidates = x.dueDateCandidates(vendorKey, doc)
	case constants.FieldVendorName:
		candidates = x.vendorCandidates(vendorKey, doc)
	case constants.FieldTaxID:
		candidates = x.taxIDCandidates(vendorKey, doc)
	case constants.FieldBankAccount:
		candidates = x.bankAccountCandidates(vendorKey, doc)
	default:
		return emptyExtraction(field)
	}
	result := rank(field, candidates)
	x.logger.Debug("field extracted",
		"field", field,
		"candidates", len(result.Candidates),
		"confidence", result.Confidence,
		"method", result.Method,
	)
	return result
}

// document caches the folded text per line so strategies share one fold pass.
type document struct {
	lines  []ocr.Line
	folded []string
}

func newDocument(lines []ocr.Line) *document {
	folded := make([]string, len(lines))
	for i, ln := range lines {
		folded[i] = ocr.Fold(ln.Text)
	}
	return &document{lines: lines, folded: folded}
}

// contextFor joins the line with the line above it on the same page, the
// 1-2 lines an anchor phrase sits on. Labels precede their values, so the
// line below is never part of the context.
func (d *document) contextFor(i int) string {
	parts := make([]string, 0, 2)
	if i > 0 && d.lines[i-1].PageIndex == d.lines[i].PageIndex {
		parts = append(parts, d.folded[i-1])
	}
	parts = append(parts, d.folded[i])
	return strings.Join(parts, " ")
}

// vendorTemplate looks up the learned overrides for boosting; zero value when
// the vendor is unknown.
func (x *Extractor) vendorTemplate(vendorKey string) (keyword.VendorOverrides, bool) {
	if x.overrides == nil || vendorKey == "" {
		return keyword.VendorOverrides{}, false
	}
	return x.overrides.Overrides(vendorKey)
}

// learnedAnchor reports whether one of the vendor's learned anchor phrases
// appears in the folded context, returning the phrase that hit.
func learnedAnchor(tpl keyword.VendorOverrides, foldedContext string) (string, bool) {
	for _, phrase := range tpl.AnchorPhrases {
		if phrase == "" {
			continue
		}
		if strings.Contains(foldedContext, ocr.Fold(phrase)) {
			return phrase, true
		}
	}
	return "", false
}

func phrases(rules []keyword.Rule) []string {
	if len(rules) == 0 {
		return nil
	}
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = r.Phrase
	}
	return out
}
