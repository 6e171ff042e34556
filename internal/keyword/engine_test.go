package keyword

import (
	"testing"
	"time"

	"github.com/jzielinski/invoicescan/constants"
)

type staticProvider map[string]VendorOverrides

func (p staticProvider) Overrides(vendorKey string) (VendorOverrides, bool) {
	v, ok := p[vendorKey]
	return v, ok
}

func newTestEngine(t *testing.T, provider OverridesProvider) *Engine {
	t.Helper()
	return NewEngine(Defaults(), provider, time.Minute, nil)
}

func TestRule_MatchTypes(t *testing.T) {
	contains := MustRule("do zapłaty", 10, "pl", MatchContains)
	if !contains.Matches("pozostało do zaplaty: 120,00") {
		t.Error("contains rule should match folded context")
	}

	equals := MustRule("razem", 6, "pl", MatchEquals)
	if !equals.Matches("razem") {
		t.Error("equals rule should match exact folded context")
	}
	if equals.Matches("razem z vat") {
		t.Error("equals rule must not match longer context")
	}

	re := MustRule(`termin .* platnosci`, 8, "pl", MatchRegex)
	if !re.Matches("termin calkowitej platnosci") {
		t.Error("regex rule should match")
	}
}

func TestNewRule_Validation(t *testing.T) {
	if _, err := NewRule("   ", 1, "", MatchContains); err == nil {
		t.Error("expected error for empty phrase")
	}
	if _, err := NewRule("(", 1, "", MatchRegex); err == nil {
		t.Error("expected error for invalid regex")
	}
	if _, err := NewRule("x", 1, "", MatchType("SOUNDEX")); err == nil {
		t.Error("expected error for unknown match type")
	}
}

func TestScore_FoldsDiacriticsAndCase(t *testing.T) {
	e := newTestEngine(t, nil)
	score, matched := e.Score("", constants.FieldDueDate, "TERMIN PŁATNOŚCI: 2024-05-01")
	if score <= 0 {
		t.Fatalf("expected positive score, got %d", score)
	}
	found := false
	for _, r := range matched {
		if r.Phrase == "termin płatności" {
			found = true
		}
	}
	if !found {
		t.Errorf("matched rules missing the due-date phrase: %+v", matched)
	}
}

func TestScore_NegativeRulesAlwaysApply(t *testing.T) {
	e := newTestEngine(t, nil)
	base, _ := e.Score("", constants.FieldDueDate, "termin płatności")
	withVAT, _ := e.Score("", constants.FieldDueDate, "termin płatności vat")
	if withVAT >= base {
		t.Errorf("negative rule should lower the score: base=%d withVAT=%d", base, withVAT)
	}
}

func TestScoreCategory_PayDueVersusTotal(t *testing.T) {
	e := newTestEngine(t, nil)
	payDue, _ := e.ScoreCategory("", constants.CategoryPayDue, "do zapłaty: 245,00")
	total, _ := e.ScoreCategory("", constants.CategoryTotal, "razem: 245,00")
	if payDue <= 0 || total <= 0 {
		t.Fatalf("both categories should score, got payDue=%d total=%d", payDue, total)
	}
	if payDue <= total {
		t.Errorf("pay-due default weight should exceed total: %d vs %d", payDue, total)
	}
}

func TestResolve_VendorRulesFirstAndDisabledGlobalSkipped(t *testing.T) {
	vendorRule := MustRule("saldo do uregulowania", 15, "pl", MatchContains)
	provider := staticProvider{
		"vendor-1": {
			VendorKey:             "vendor-1",
			Revision:              1,
			PayDue:                []Rule{vendorRule},
			DisabledGlobalPhrases: []string{"do zapłaty"},
		},
	}
	e := newTestEngine(t, provider)

	rules := e.Resolve("vendor-1", constants.CategoryPayDue)
	if len(rules) == 0 || rules[0].Phrase != "saldo do uregulowania" {
		t.Fatalf("vendor rule should come first, got %+v", rules)
	}
	for _, r := range rules {
		if r.Phrase == "do zapłaty" {
			t.Error("disabled global phrase must not be in the effective set")
		}
	}

	// unknown vendor falls back to global
	global := e.Resolve("vendor-unknown", constants.CategoryPayDue)
	if len(global) != len(Defaults().PayDue) {
		t.Errorf("unknown vendor should get the full global set, got %d rules", len(global))
	}
}

func TestSetGlobal_RefusesDowngrade(t *testing.T) {
	e := newTestEngine(t, nil)
	stale := Defaults() // same version as current
	e.SetGlobal(stale)
	if e.Global().Version != 1 {
		t.Errorf("version should stay 1, got %d", e.Global().Version)
	}

	next := Defaults().WithRules(constants.CategoryTotal, nil)
	e.SetGlobal(next)
	if e.Global().Version != 2 {
		t.Errorf("version should advance to 2, got %d", e.Global().Version)
	}
	if len(e.Resolve("", constants.CategoryTotal)) != 0 {
		t.Error("new version should have the replaced empty total set")
	}
}

func TestWithRules_DoesNotMutateReceiver(t *testing.T) {
	orig := Defaults()
	_ = orig.WithRules(constants.CategoryPayDue, nil)
	if len(orig.PayDue) == 0 {
		t.Error("WithRules must not mutate the original version")
	}
}

func TestParseGlobalConfig(t *testing.T) {
	raw := []byte(`
version: 3
currency_hints: [PLN]
pay_due:
  - {phrase: "do zapłaty", language: pl}
  - {phrase: "amount due", weight: 12, language: en, match: contains}
due_date:
  - {phrase: "termin .*", language: pl, match: regex}
`)
	cfg, err := ParseGlobalConfig(raw, DefaultWeights())
	if err != nil {
		t.Fatalf("ParseGlobalConfig: %v", err)
	}
	if cfg.Version != 3 {
		t.Errorf("version = %d, want 3", cfg.Version)
	}
	if len(cfg.PayDue) != 2 {
		t.Fatalf("expected 2 pay-due rules, got %d", len(cfg.PayDue))
	}
	if cfg.PayDue[0].Weight != DefaultWeights().PayDue {
		t.Errorf("zero weight should fall back to category default, got %d", cfg.PayDue[0].Weight)
	}
	if cfg.PayDue[1].Weight != 12 {
		t.Errorf("explicit weight should be kept, got %d", cfg.PayDue[1].Weight)
	}
	if cfg.DueDate[0].MatchType != MatchRegex {
		t.Errorf("match type regex expected, got %s", cfg.DueDate[0].MatchType)
	}
}

func TestParseGlobalConfig_Invalid(t *testing.T) {
	if _, err := ParseGlobalConfig([]byte("version: 0"), DefaultWeights()); err == nil {
		t.Error("expected error for non-positive version")
	}
	if _, err := ParseGlobalConfig([]byte("pay_due: [{phrase: x, match: nope}]\nversion: 1"), DefaultWeights()); err == nil {
		t.Error("expected error for unknown match type")
	}
}
