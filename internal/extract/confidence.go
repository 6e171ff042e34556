package extract

import (
	"github.com/jzielinski/invoicescan/constants"
)

// ConfidenceModel holds the hand-tuned scoring constants. The values come
// from production tuning and have no documented derivation; they are kept as
// named, overridable configuration rather than re-derived.
type ConfidenceModel struct {
	AnchorBase   float64
	TemplateBase float64
	RegionBase   float64
	PatternBase  float64
	FallbackBase float64

	// RuleScoreUnit converts one keyword-rule weight point into a confidence
	// delta; the total adjustment is clamped to ±MaxRuleAdjust.
	RuleScoreUnit float64
	MaxRuleAdjust float64

	// PayDuePriorityBonus is the fixed priority a pay-due anchored amount
	// receives over total/subtotal anchored ones.
	PayDuePriorityBonus float64

	// BoostTiers is the vendor-template confidence boost by correction-count
	// bucket: 1, 2-3, 4-6, 7+ corrections.
	BoostTiers [4]float64
}

// DefaultConfidenceModel returns the production constants.
func DefaultConfidenceModel() ConfidenceModel {
	return ConfidenceModel{
		AnchorBase:          0.85,
		TemplateBase:        0.80,
		RegionBase:          0.65,
		PatternBase:         0.50,
		FallbackBase:        0.35,
		RuleScoreUnit:       0.01,
		MaxRuleAdjust:       0.15,
		PayDuePriorityBonus: 0.10,
		BoostTiers:          [4]float64{0.05, 0.10, 0.15, 0.20},
	}
}

// Base returns the starting confidence for an extraction method.
func (m ConfidenceModel) Base(method constants.ExtractionMethod) float64 {
	switch method {
	case constants.MethodAnchorBased:
		return m.AnchorBase
	case constants.MethodTemplateBased:
		return m.TemplateBase
	case constants.MethodRegionHeuristic:
		return m.RegionBase
	case constants.MethodPatternMatching:
		return m.PatternBase
	default:
		return m.FallbackBase
	}
}

// RuleAdjust maps a summed keyword-rule score onto a clamped confidence delta.
func (m ConfidenceModel) RuleAdjust(score int) float64 {
	adj := float64(score) * m.RuleScoreUnit
	if adj > m.MaxRuleAdjust {
		return m.MaxRuleAdjust
	}
	if adj < -m.MaxRuleAdjust {
		return -m.MaxRuleAdjust
	}
	return adj
}

// Boost returns the vendor-template confidence boost for a correction count.
func (m ConfidenceModel) Boost(correctionCount int) float64 {
	switch {
	case correctionCount <= 0:
		return 0
	case correctionCount == 1:
		return m.BoostTiers[0]
	case correctionCount <= 3:
		return m.BoostTiers[1]
	case correctionCount <= 6:
		return m.BoostTiers[2]
	default:
		return m.BoostTiers[3]
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
