package entity

import "time"

// RuleDoc is the stored form of a keyword rule. Only declarative fields are
// persisted; folded text and compiled regexes are rebuilt on load.
type RuleDoc struct {
	Phrase    string `json:"phrase"`
	Weight    int    `json:"weight"`
	Language  string `json:"language,omitempty"`
	MatchType string `json:"match_type"`
}

// GlobalRulesetDoc is one immutable version of the global keyword config.
type GlobalRulesetDoc struct {
	Version       int       `json:"version"`
	PayDue        []RuleDoc `json:"pay_due,omitempty"`
	DueDate       []RuleDoc `json:"due_date,omitempty"`
	Total         []RuleDoc `json:"total,omitempty"`
	Negative      []RuleDoc `json:"negative,omitempty"`
	CurrencyHints []string  `json:"currency_hints,omitempty"`
}

// VendorOverridesDoc is the stored form of one vendor's keyword overrides.
type VendorOverridesDoc struct {
	VendorKey             string    `json:"vendor_key"`
	Revision              int       `json:"revision"`
	PayDue                []RuleDoc `json:"pay_due,omitempty"`
	DueDate               []RuleDoc `json:"due_date,omitempty"`
	Total                 []RuleDoc `json:"total,omitempty"`
	Negative              []RuleDoc `json:"negative,omitempty"`
	DisabledGlobalPhrases []string  `json:"disabled_global_phrases,omitempty"`
	CorrectionCount       int       `json:"correction_count"`
	PreferredRegion       string    `json:"preferred_region,omitempty"`
	AnchorPhrases         []string  `json:"anchor_phrases,omitempty"`
}

// KeywordStatDoc is one persisted hit/miss record.
type KeywordStatDoc struct {
	VendorKey  string    `json:"vendor_key"`
	Phrase     string    `json:"phrase"`
	Field      string    `json:"field"`
	Hits       int       `json:"hits"`
	Misses     int       `json:"misses"`
	LastSeenAt time.Time `json:"last_seen_at"`
	State      string    `json:"state"`
}
