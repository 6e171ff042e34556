package keyword

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/jzielinski/invoicescan/constants"
	"github.com/jzielinski/invoicescan/internal/ocr"
)

// OverridesProvider supplies the current vendor overrides. Implemented by the
// learning tracker (live) and by the repository (cold start).
type OverridesProvider interface {
	Overrides(vendorKey string) (VendorOverrides, bool)
}

// Engine scores text contexts against the effective ruleset: vendor overrides
// layered over the enabled global rules, with negative rules always applied.
type Engine struct {
	mu       sync.RWMutex
	global   GlobalConfig
	provider OverridesProvider
	resolved *gocache.Cache
	logger   *slog.Logger
}

// NewEngine builds an engine around a global config version and a vendor
// overrides source. Resolved rulesets are cached per (vendor revision, global
// version, category).
func NewEngine(global GlobalConfig, provider OverridesProvider, cacheTTL time.Duration, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &Engine{
		global:   global,
		provider: provider,
		resolved: gocache.New(cacheTTL, 2*cacheTTL),
		logger:   logger,
	}
}

// Global returns the current global config version.
func (e *Engine) Global() GlobalConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.global
}

// SetGlobal swaps in a new global config version. Older versions keep their
// cache entries until TTL; keys embed the version so they can never be served
// for the new one.
func (e *Engine) SetGlobal(cfg GlobalConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cfg.Version <= e.global.Version {
		e.logger.Warn("refusing global keyword config downgrade",
			"current_version", e.global.Version, "offered_version", cfg.Version)
		return
	}
	e.global = cfg
}

// Score sums the weights of every effective rule matching the context for the
// given field and returns the matched rules for learning feedback. The
// context is folded (lowercase, diacritics stripped) before matching.
func (e *Engine) Score(vendorKey string, field constants.FieldType, context string) (int, []Rule) {
	folded := ocr.Fold(context)
	total := 0
	var matched []Rule
	for _, cat := range categoriesForField(field) {
		s, m := e.scoreFolded(vendorKey, cat, folded)
		total += s
		matched = append(matched, m...)
	}
	s, m := e.scoreFolded(vendorKey, constants.CategoryNegative, folded)
	return total + s, append(matched, m...)
}

// ScoreCategory scores one category plus the always-on negative rules.
// The extractor uses this to weigh pay-due matches against total matches.
func (e *Engine) ScoreCategory(vendorKey string, cat constants.KeywordCategory, context string) (int, []Rule) {
	folded := ocr.Fold(context)
	total, matched := e.scoreFolded(vendorKey, cat, folded)
	if cat != constants.CategoryNegative {
		s, m := e.scoreFolded(vendorKey, constants.CategoryNegative, folded)
		total += s
		matched = append(matched, m...)
	}
	return total, matched
}

func (e *Engine) scoreFolded(vendorKey string, cat constants.KeywordCategory, foldedContext string) (int, []Rule) {
	rules := e.Resolve(vendorKey, cat)
	total := 0
	var matched []Rule
	for _, r := range rules {
		if r.Matches(foldedContext) {
			total += r.Weight
			matched = append(matched, r)
		}
	}
	return total, matched
}

// Resolve returns the effective rule list for one category: vendor rules
// first (they win ties downstream), then global rules whose phrase the vendor
// has not disabled.
func (e *Engine) Resolve(vendorKey string, cat constants.KeywordCategory) []Rule {
	e.mu.RLock()
	global := e.global
	e.mu.RUnlock()

	var overrides VendorOverrides
	haveOverrides := false
	if e.provider != nil && vendorKey != "" {
		overrides, haveOverrides = e.provider.Overrides(vendorKey)
	}

	key := resolveKey(vendorKey, overrides.Revision, global.Version, cat)
	if cached, ok := e.resolved.Get(key); ok {
		return cached.([]Rule)
	}

	var effective []Rule
	if haveOverrides {
		effective = append(effective, overrides.Category(cat)...)
		for _, r := range global.Category(cat) {
			if !overrides.IsDisabled(r.Phrase) {
				effective = append(effective, r)
			}
		}
	} else {
		effective = append(effective, global.Category(cat)...)
	}

	e.resolved.Set(key, effective, gocache.DefaultExpiration)
	return effective
}

func resolveKey(vendorKey string, revision, version int, cat constants.KeywordCategory) string {
	return fmt.Sprintf("%s|r%d|v%d|%s", vendorKey, revision, version, cat)
}

func categoriesForField(field constants.FieldType) []constants.KeywordCategory {
	switch field {
	case constants.FieldAmount:
		return []constants.KeywordCategory{constants.CategoryPayDue, constants.CategoryTotal}
	case constants.FieldDueDate:
		return []constants.KeywordCategory{constants.CategoryDueDate}
	default:
		// vendor name, tax ID and bank account rely on label anchors in the
		// extractor, not on keyword categories
		return nil
	}
}
