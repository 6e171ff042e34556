package learning

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jzielinski/invoicescan/constants"
	"github.com/jzielinski/invoicescan/internal/keyword"
)

// Feedback is the review-UI correction tuple reported after a user accepts or
// corrects an extracted field.
type Feedback struct {
	Field                    constants.FieldType
	OriginalConfidence       float64
	AlternativeSelectedIndex *int
	WasCorrected             bool
	Method                   constants.ExtractionMethod
}

type statKey struct {
	Phrase string
	Field  constants.FieldType
}

// vendorState is the per-vendor mutable cell. Its mutex serializes all
// correction processing for one vendor; different vendors proceed in
// parallel.
type vendorState struct {
	mu        sync.Mutex
	overrides keyword.VendorOverrides
	stats     map[statKey]Stat
}

// Tracker owns the learning loop: it accumulates hit/miss stats per
// (vendor, phrase, field) and folds promotions and blocks back into the
// vendor keyword overrides consulted on the next document.
//
// It implements keyword.OverridesProvider, so the rule engine and the
// extractor read learned state directly from it.
type Tracker struct {
	mu      sync.RWMutex
	vendors map[string]*vendorState
	weights keyword.WeightsConfig
	logger  *slog.Logger
	now     func() time.Time
}

// NewTracker builds an empty tracker. Seed stored overrides and stats with
// Seed before first use.
func NewTracker(weights keyword.WeightsConfig, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		vendors: make(map[string]*vendorState),
		weights: weights,
		logger:  logger,
		now:     time.Now,
	}
}

// Seed installs persisted overrides and stats for a vendor, replacing any
// in-memory state.
func (t *Tracker) Seed(overrides keyword.VendorOverrides, stats []Stat) {
	vs := &vendorState{
		overrides: overrides,
		stats:     make(map[statKey]Stat, len(stats)),
	}
	for _, s := range stats {
		vs.stats[statKey{Phrase: s.Phrase, Field: s.Field}] = s
	}
	t.mu.Lock()
	t.vendors[overrides.VendorKey] = vs
	t.mu.Unlock()
}

// Overrides implements keyword.OverridesProvider.
func (t *Tracker) Overrides(vendorKey string) (keyword.VendorOverrides, bool) {
	t.mu.RLock()
	vs, ok := t.vendors[vendorKey]
	t.mu.RUnlock()
	if !ok {
		return keyword.VendorOverrides{}, false
	}
	vs.mu.Lock()
	defer vs.mu.Unlock()
	return vs.overrides, true
}

// RecordHit registers a confirmed phrase observation. The counter update and
// the transition check happen atomically under the vendor lock; a promotion
// makes the phrase a permanent vendor rule.
func (t *Tracker) RecordHit(vendorKey, phrase string, field constants.FieldType) Stat {
	vs := t.vendor(vendorKey)
	vs.mu.Lock()
	defer vs.mu.Unlock()

	key := statKey{Phrase: phrase, Field: field}
	stat, ok := vs.stats[key]
	if !ok {
		stat = NewStat(vendorKey, phrase, field, t.now())
	}
	before := stat.State
	stat = stat.WithHit(t.now())
	vs.stats[key] = stat

	if before != constants.StatPromoted && stat.State == constants.StatPromoted {
		t.promoteLocked(vs, phrase, field)
		t.logger.Info("keyword promoted", "vendor", vendorKey, "phrase", phrase, "field", field)
	}
	return stat
}

// RecordMiss registers a failed phrase observation; a block disables the
// phrase for this vendor.
func (t *Tracker) RecordMiss(vendorKey, phrase string, field constants.FieldType) Stat {
	vs := t.vendor(vendorKey)
	vs.mu.Lock()
	defer vs.mu.Unlock()

	key := statKey{Phrase: phrase, Field: field}
	stat, ok := vs.stats[key]
	if !ok {
		stat = NewStat(vendorKey, phrase, field, t.now())
	}
	before := stat.State
	stat = stat.WithMiss(t.now())
	vs.stats[key] = stat

	if before != constants.StatBlocked && stat.State == constants.StatBlocked {
		vs.overrides = vs.overrides.WithDisabledPhrase(phrase)
		t.logger.Info("keyword blocked", "vendor", vendorKey, "phrase", phrase, "field", field)
	}
	return stat
}

// Reset returns a stat to candidate, the explicit escape from a terminal
// state.
func (t *Tracker) Reset(vendorKey, phrase string, field constants.FieldType) (Stat, bool) {
	vs := t.vendor(vendorKey)
	vs.mu.Lock()
	defer vs.mu.Unlock()

	key := statKey{Phrase: phrase, Field: field}
	stat, ok := vs.stats[key]
	if !ok {
		return Stat{}, false
	}
	stat = stat.Reset(t.now())
	vs.stats[key] = stat
	return stat, true
}

// ApplyCorrection turns one review-UI feedback tuple into hit/miss calls.
// bestPhrases are the keyword phrases that scored the originally shown value;
// selectedPhrases are those behind the alternative the user picked, if any.
func (t *Tracker) ApplyCorrection(vendorKey string, fb Feedback, bestPhrases, selectedPhrases []string) {
	if !fb.WasCorrected && fb.AlternativeSelectedIndex == nil {
		for _, p := range bestPhrases {
			t.RecordHit(vendorKey, p, fb.Field)
		}
		return
	}

	// the shown value was wrong: its phrases missed, the chosen ones hit
	for _, p := range bestPhrases {
		t.RecordMiss(vendorKey, p, fb.Field)
	}
	for _, p := range selectedPhrases {
		t.RecordHit(vendorKey, p, fb.Field)
	}

	vs := t.vendor(vendorKey)
	vs.mu.Lock()
	vs.overrides = vs.overrides.WithCorrection()
	vs.mu.Unlock()
}

// Snapshot returns the current overrides and stats for persistence, stats
// ordered deterministically.
func (t *Tracker) Snapshot(vendorKey string) (keyword.VendorOverrides, []Stat, bool) {
	t.mu.RLock()
	vs, ok := t.vendors[vendorKey]
	t.mu.RUnlock()
	if !ok {
		return keyword.VendorOverrides{}, nil, false
	}
	vs.mu.Lock()
	defer vs.mu.Unlock()

	stats := make([]Stat, 0, len(vs.stats))
	for _, s := range vs.stats {
		stats = append(stats, s)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Field != stats[j].Field {
			return stats[i].Field < stats[j].Field
		}
		return stats[i].Phrase < stats[j].Phrase
	})
	return vs.overrides, stats, true
}

// VendorKeys lists every vendor with learned state, sorted.
func (t *Tracker) VendorKeys() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	keys := make([]string, 0, len(t.vendors))
	for k := range t.vendors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (t *Tracker) vendor(vendorKey string) *vendorState {
	t.mu.Lock()
	defer t.mu.Unlock()
	vs, ok := t.vendors[vendorKey]
	if !ok {
		vs = &vendorState{
			overrides: keyword.VendorOverrides{VendorKey: vendorKey},
			stats:     make(map[statKey]Stat),
		}
		t.vendors[vendorKey] = vs
	}
	return vs
}

// promoteLocked folds a promoted phrase into the vendor overrides: a
// permanent rule for rule-scored fields, and a learned anchor for the
// extractor's template boost. Caller holds vs.mu.
func (t *Tracker) promoteLocked(vs *vendorState, phrase string, field constants.FieldType) {
	if cat, ok := ruleCategoryForField(field); ok {
		rule, err := keyword.NewRule(phrase, t.weights.Promoted, "", keyword.MatchContains)
		if err != nil {
			t.logger.Warn("promoted phrase rejected as rule", "phrase", phrase, "error", err)
		} else {
			vs.overrides = vs.overrides.WithRule(cat, rule)
		}
	}
	vs.overrides = vs.overrides.WithAnchorPhrase(phrase)
}

func ruleCategoryForField(field constants.FieldType) (constants.KeywordCategory, bool) {
	switch field {
	case constants.FieldAmount:
		return constants.CategoryPayDue, true
	case constants.FieldDueDate:
		return constants.CategoryDueDate, true
	}
	return "", false
}
