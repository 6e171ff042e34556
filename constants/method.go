package constants

// ExtractionMethod records which strategy produced a candidate.
type ExtractionMethod string

// Stable values (store these exact strings in DB).
const (
	MethodAnchorBased     ExtractionMethod = "ANCHOR_BASED"
	MethodTemplateBased   ExtractionMethod = "TEMPLATE_BASED"
	MethodRegionHeuristic ExtractionMethod = "REGION_HEURISTIC"
	MethodPatternMatching ExtractionMethod = "PATTERN_MATCHING"
	MethodCloud           ExtractionMethod = "CLOUD"
	MethodFallback        ExtractionMethod = "FALLBACK"
)

// methodPriority orders methods for tie-breaking when confidences are equal.
// Lower is better.
var methodPriority = map[ExtractionMethod]int{
	MethodAnchorBased:     0,
	MethodTemplateBased:   1,
	MethodRegionHeuristic: 2,
	MethodPatternMatching: 3,
	MethodCloud:           4,
	MethodFallback:        5,
}

// MethodPriority returns the tie-break rank for a method; unknown methods sort last.
func MethodPriority(m ExtractionMethod) int {
	if p, ok := methodPriority[m]; ok {
		return p
	}
	return len(methodPriority)
}
