package matching

import (
	"math"
	"sort"

	"github.com/google/uuid"
)

// Outcome is the decision for a new document's amount against existing
// templates.
type Outcome string

const (
	NoExistingTemplates Outcome = "NO_EXISTING_TEMPLATES" // caller creates the first template
	ExactMatch          Outcome = "EXACT_MATCH"           // fingerprint equality, link without amount check
	AutoMatch           Outcome = "AUTO_MATCH"            // close enough to link silently
	AutoCreateNew       Outcome = "AUTO_CREATE_NEW"       // far enough to create silently
	NeedsConfirmation   Outcome = "NEEDS_CONFIRMATION"    // fuzzy zone, ask the user
)

// Options carries the decision thresholds. The defaults are the tuned
// production values; both are configuration points, not magic numbers.
type Options struct {
	// AutoMatchThreshold: strictly below this percent difference the document
	// links automatically.
	AutoMatchThreshold float64
	// AutoCreateThreshold: at or above this percent difference a new template
	// is created automatically. The band between the two is the fuzzy zone.
	AutoCreateThreshold float64
}

// DefaultOptions returns the production thresholds (30% / 50%).
func DefaultOptions() Options {
	return Options{AutoMatchThreshold: 0.30, AutoCreateThreshold: 0.50}
}

// Candidate is one template surfaced for user confirmation. Ephemeral: never
// persisted, only the chosen link or "create new" is written back.
type Candidate struct {
	TemplateID        uuid.UUID `json:"template_id"`
	PercentDifference float64   `json:"percent_difference"`
}

// Result is the matching decision. TemplateID is set for ExactMatch and
// AutoMatch; Candidates for NeedsConfirmation.
type Result struct {
	Outcome           Outcome     `json:"outcome"`
	TemplateID        uuid.UUID   `json:"template_id,omitempty"`
	PercentDifference float64     `json:"percent_difference,omitempty"`
	Candidates        []Candidate `json:"candidates,omitempty"`
}

// Decide resolves whether a new document should link to an existing template,
// spawn a new one, or ask the user. It is total: every input maps to an
// outcome, never an error.
func Decide(fingerprint string, amount float64, templates []Template, opts Options) Result {
	if len(templates) == 0 {
		return Result{Outcome: NoExistingTemplates}
	}

	// exact fingerprint equality links without any amount check; with several
	// exact matches the amount-closest one wins
	var exact []Template
	for _, tpl := range templates {
		if tpl.VendorFingerprint == fingerprint {
			exact = append(exact, tpl)
		}
	}
	if len(exact) > 0 {
		best, diff := closest(exact, amount)
		return Result{Outcome: ExactMatch, TemplateID: best.ID, PercentDifference: diff}
	}

	best, bestDiff := closest(templates, amount)
	if bestDiff < opts.AutoMatchThreshold {
		return Result{Outcome: AutoMatch, TemplateID: best.ID, PercentDifference: bestDiff}
	}
	if bestDiff >= opts.AutoCreateThreshold {
		return Result{Outcome: AutoCreateNew, PercentDifference: bestDiff}
	}

	// fuzzy zone: surface every template in the band for the user
	var candidates []Candidate
	for _, tpl := range templates {
		d := PercentDifference(tpl, amount)
		if d >= opts.AutoMatchThreshold && d < opts.AutoCreateThreshold {
			candidates = append(candidates, Candidate{TemplateID: tpl.ID, PercentDifference: d})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].PercentDifference < candidates[j].PercentDifference
	})
	return Result{Outcome: NeedsConfirmation, PercentDifference: bestDiff, Candidates: candidates}
}

// PercentDifference compares an amount against a template's amount band:
// |amount - midpoint| / midpoint. The midpoint falls back to whichever bound
// is present; with neither bound the difference is maximal (1.0), keeping the
// decision total.
func PercentDifference(tpl Template, amount float64) float64 {
	mid, ok := midpoint(tpl)
	if !ok || mid <= 0 {
		return 1.0
	}
	return math.Abs(amount-mid) / mid
}

func midpoint(tpl Template) (float64, bool) {
	switch {
	case tpl.AmountMin != nil && tpl.AmountMax != nil:
		return (*tpl.AmountMin + *tpl.AmountMax) / 2, true
	case tpl.AmountMin != nil:
		return *tpl.AmountMin, true
	case tpl.AmountMax != nil:
		return *tpl.AmountMax, true
	}
	return 0, false
}

func closest(templates []Template, amount float64) (Template, float64) {
	best := templates[0]
	bestDiff := PercentDifference(best, amount)
	for _, tpl := range templates[1:] {
		if d := PercentDifference(tpl, amount); d < bestDiff {
			best, bestDiff = tpl, d
		}
	}
	return best, bestDiff
}
