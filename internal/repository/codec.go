package repository

import (
	"github.com/jzielinski/invoicescan/constants"
	"github.com/jzielinski/invoicescan/internal/common"
	"github.com/jzielinski/invoicescan/internal/entity"
	"github.com/jzielinski/invoicescan/internal/keyword"
	"github.com/jzielinski/invoicescan/internal/learning"
)

func toRuleDocs(rules []keyword.Rule) []entity.RuleDoc {
	if len(rules) == 0 {
		return nil
	}
	docs := make([]entity.RuleDoc, len(rules))
	for i, r := range rules {
		docs[i] = entity.RuleDoc{
			Phrase:    r.Phrase,
			Weight:    r.Weight,
			Language:  r.Language,
			MatchType: string(r.MatchType),
		}
	}
	return docs
}

// fromRuleDocs rebuilds rules through the validating constructor, so folded
// text and compiled regexes come back after a round trip.
func fromRuleDocs(docs []entity.RuleDoc) ([]keyword.Rule, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	rules := make([]keyword.Rule, 0, len(docs))
	for _, d := range docs {
		r, err := keyword.NewRule(d.Phrase, d.Weight, d.Language, keyword.MatchType(d.MatchType))
		if err != nil {
			return nil, common.NewAppError("RULESET_DECODE", "stored rule is invalid", err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

func toGlobalDoc(cfg keyword.GlobalConfig) entity.GlobalRulesetDoc {
	return entity.GlobalRulesetDoc{
		Version:       cfg.Version,
		PayDue:        toRuleDocs(cfg.PayDue),
		DueDate:       toRuleDocs(cfg.DueDate),
		Total:         toRuleDocs(cfg.Total),
		Negative:      toRuleDocs(cfg.Negative),
		CurrencyHints: cfg.CurrencyHints,
	}
}

func fromGlobalDoc(doc entity.GlobalRulesetDoc) (keyword.GlobalConfig, error) {
	cfg := keyword.GlobalConfig{Version: doc.Version, CurrencyHints: doc.CurrencyHints}
	var err error
	if cfg.PayDue, err = fromRuleDocs(doc.PayDue); err != nil {
		return keyword.GlobalConfig{}, err
	}
	if cfg.DueDate, err = fromRuleDocs(doc.DueDate); err != nil {
		return keyword.GlobalConfig{}, err
	}
	if cfg.Total, err = fromRuleDocs(doc.Total); err != nil {
		return keyword.GlobalConfig{}, err
	}
	if cfg.Negative, err = fromRuleDocs(doc.Negative); err != nil {
		return keyword.GlobalConfig{}, err
	}
	return cfg, nil
}

func toOverridesDoc(ov keyword.VendorOverrides) entity.VendorOverridesDoc {
	return entity.VendorOverridesDoc{
		VendorKey:             ov.VendorKey,
		Revision:              ov.Revision,
		PayDue:                toRuleDocs(ov.PayDue),
		DueDate:               toRuleDocs(ov.DueDate),
		Total:                 toRuleDocs(ov.Total),
		Negative:              toRuleDocs(ov.Negative),
		DisabledGlobalPhrases: ov.DisabledGlobalPhrases,
		CorrectionCount:       ov.CorrectionCount,
		PreferredRegion:       ov.PreferredRegion,
		AnchorPhrases:         ov.AnchorPhrases,
	}
}

func fromOverridesDoc(doc entity.VendorOverridesDoc) (keyword.VendorOverrides, error) {
	ov := keyword.VendorOverrides{
		VendorKey:             doc.VendorKey,
		Revision:              doc.Revision,
		DisabledGlobalPhrases: doc.DisabledGlobalPhrases,
		CorrectionCount:       doc.CorrectionCount,
		PreferredRegion:       doc.PreferredRegion,
		AnchorPhrases:         doc.AnchorPhrases,
	}
	var err error
	if ov.PayDue, err = fromRuleDocs(doc.PayDue); err != nil {
		return keyword.VendorOverrides{}, err
	}
	if ov.DueDate, err = fromRuleDocs(doc.DueDate); err != nil {
		return keyword.VendorOverrides{}, err
	}
	if ov.Total, err = fromRuleDocs(doc.Total); err != nil {
		return keyword.VendorOverrides{}, err
	}
	if ov.Negative, err = fromRuleDocs(doc.Negative); err != nil {
		return keyword.VendorOverrides{}, err
	}
	return ov, nil
}

func toStatDoc(s learning.Stat) entity.KeywordStatDoc {
	return entity.KeywordStatDoc{
		VendorKey:  s.VendorKey,
		Phrase:     s.Phrase,
		Field:      string(s.Field),
		Hits:       s.Hits,
		Misses:     s.Misses,
		LastSeenAt: s.LastSeenAt,
		State:      string(s.State),
	}
}

func fromStatDoc(doc entity.KeywordStatDoc) (learning.Stat, error) {
	field, err := constants.ParseFieldType(doc.Field)
	if err != nil {
		return learning.Stat{}, common.NewAppError("STAT_DECODE", "stored stat has unknown field type", err)
	}
	return learning.Stat{
		VendorKey:  doc.VendorKey,
		Phrase:     doc.Phrase,
		Field:      field,
		Hits:       doc.Hits,
		Misses:     doc.Misses,
		LastSeenAt: doc.LastSeenAt,
		State:      constants.StatState(doc.State),
	}, nil
}
