package constants

// StatState is the lifecycle state of a learned (vendor, phrase, field) stat.
type StatState string

// Stable values (store these exact strings in DB).
const (
	StatCandidate StatState = "CANDIDATE" // under observation
	StatPromoted  StatState = "PROMOTED"  // phrase became a permanent vendor rule
	StatBlocked   StatState = "BLOCKED"   // phrase disabled for this vendor
)

// RoutingReason explains a local-only extraction decision.
type RoutingReason string

const (
	ReasonDisabledInSettings RoutingReason = "DISABLED_IN_SETTINGS"
	ReasonOffline            RoutingReason = "OFFLINE"
	ReasonCloudUnavailable   RoutingReason = "CLOUD_UNAVAILABLE"
)

// BackendHealth is the reported state of the cloud extraction backend.
type BackendHealth string

const (
	BackendHealthy  BackendHealth = "HEALTHY"
	BackendDegraded BackendHealth = "DEGRADED"
	BackendDown     BackendHealth = "DOWN"
)
