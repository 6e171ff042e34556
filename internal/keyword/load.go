package keyword

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jzielinski/invoicescan/constants"
)

type ruleYAML struct {
	Phrase   string `yaml:"phrase"`
	Weight   int    `yaml:"weight"`
	Language string `yaml:"language"`
	Match    string `yaml:"match"`
}

type configYAML struct {
	Version       int        `yaml:"version"`
	CurrencyHints []string   `yaml:"currency_hints"`
	PayDue        []ruleYAML `yaml:"pay_due"`
	DueDate       []ruleYAML `yaml:"due_date"`
	Total         []ruleYAML `yaml:"total"`
	Negative      []ruleYAML `yaml:"negative"`
}

// LoadGlobalConfig reads a global keyword config from a YAML file. Weights
// left at zero fall back to the category default from WeightsConfig.
func LoadGlobalConfig(path string, weights WeightsConfig) (GlobalConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return GlobalConfig{}, fmt.Errorf("read keyword config: %w", err)
	}
	return ParseGlobalConfig(raw, weights)
}

// ParseGlobalConfig parses YAML bytes into a validated GlobalConfig.
func ParseGlobalConfig(raw []byte, weights WeightsConfig) (GlobalConfig, error) {
	var doc configYAML
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return GlobalConfig{}, fmt.Errorf("parse keyword config: %w", err)
	}
	if doc.Version <= 0 {
		return GlobalConfig{}, fmt.Errorf("keyword config version must be positive, got %d", doc.Version)
	}

	cfg := GlobalConfig{Version: doc.Version, CurrencyHints: doc.CurrencyHints}
	sections := []struct {
		cat   constants.KeywordCategory
		rules []ruleYAML
		dst   *[]Rule
	}{
		{constants.CategoryPayDue, doc.PayDue, &cfg.PayDue},
		{constants.CategoryDueDate, doc.DueDate, &cfg.DueDate},
		{constants.CategoryTotal, doc.Total, &cfg.Total},
		{constants.CategoryNegative, doc.Negative, &cfg.Negative},
	}
	for _, s := range sections {
		for _, ry := range s.rules {
			weight := ry.Weight
			if weight == 0 {
				weight = weights.CategoryWeight(s.cat)
			}
			mt, err := parseMatchType(ry.Match)
			if err != nil {
				return GlobalConfig{}, err
			}
			r, err := NewRule(ry.Phrase, weight, ry.Language, mt)
			if err != nil {
				return GlobalConfig{}, fmt.Errorf("category %s: %w", s.cat, err)
			}
			*s.dst = append(*s.dst, r)
		}
	}
	return cfg, nil
}

func parseMatchType(s string) (MatchType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "CONTAINS":
		return MatchContains, nil
	case "EQUALS":
		return MatchEquals, nil
	case "REGEX":
		return MatchRegex, nil
	}
	return "", fmt.Errorf("unknown match type %q", s)
}

// Defaults returns the built-in bilingual global config used when no YAML
// file is configured. Phrases mirror the shipped configs/keywords.yaml.
func Defaults() GlobalConfig {
	w := DefaultWeights()
	return GlobalConfig{
		Version:       1,
		CurrencyHints: []string{"PLN", "EUR", "USD", "zł", "€", "$"},
		PayDue: []Rule{
			MustRule("do zapłaty", w.PayDue, "pl", MatchContains),
			MustRule("pozostało do zapłaty", w.PayDue, "pl", MatchContains),
			MustRule("kwota do zapłaty", w.PayDue, "pl", MatchContains),
			MustRule("należność", w.PayDue, "pl", MatchContains),
			MustRule("amount due", w.PayDue, "en", MatchContains),
			MustRule("balance due", w.PayDue, "en", MatchContains),
			MustRule("total due", w.PayDue, "en", MatchContains),
		},
		DueDate: []Rule{
			MustRule("termin płatności", w.DueDate, "pl", MatchContains),
			MustRule("termin zapłaty", w.DueDate, "pl", MatchContains),
			MustRule("płatne do", w.DueDate, "pl", MatchContains),
			MustRule("data płatności", w.DueDate, "pl", MatchContains),
			MustRule("due date", w.DueDate, "en", MatchContains),
			MustRule("payment due", w.DueDate, "en", MatchContains),
			MustRule("pay by", w.DueDate, "en", MatchContains),
		},
		Total: []Rule{
			MustRule("razem", w.Total, "pl", MatchContains),
			MustRule("suma", w.Total, "pl", MatchContains),
			MustRule("wartość brutto", w.Total, "pl", MatchContains),
			MustRule("łącznie", w.Total, "pl", MatchContains),
			MustRule("total", w.Total, "en", MatchContains),
			MustRule("subtotal", w.Total/2, "en", MatchContains),
			MustRule("grand total", w.Total, "en", MatchContains),
		},
		Negative: []Rule{
			MustRule("vat", w.Negative, "", MatchContains),
			MustRule("podatek", w.Negative, "pl", MatchContains),
			MustRule("rabat", w.Negative, "pl", MatchContains),
			MustRule("discount", w.Negative, "en", MatchContains),
			MustRule("zaliczka", w.Negative, "pl", MatchContains),
		},
	}
}
