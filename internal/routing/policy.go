package routing

import "github.com/jzielinski/invoicescan/constants"

// Facts are the connectivity inputs to the routing decision. They are plain
// values supplied by the caller; this package performs no probing of its own.
type Facts struct {
	Online         bool
	BackendHealth  constants.BackendHealth
	CloudEnabled   bool
	RemainingQuota int
}

// Decision says whether a cloud extraction attempt is allowed. Reason is set
// only when Cloud is false.
type Decision struct {
	Cloud          bool                    `json:"cloud"`
	Reason         constants.RoutingReason `json:"reason,omitempty"`
	RemainingQuota int                     `json:"remaining_quota,omitempty"`
}

// Decide picks cloud or local-only extraction. The checks are ordered: a user
// setting beats connectivity, connectivity beats backend health. Quota
// exhaustion is not decided here; it surfaces only after a cloud attempt, as
// ErrQuotaExceeded, and never masquerades as a routing reason.
func Decide(f Facts) Decision {
	switch {
	case !f.CloudEnabled:
		return Decision{Reason: constants.ReasonDisabledInSettings}
	case !f.Online:
		return Decision{Reason: constants.ReasonOffline}
	case f.BackendHealth == constants.BackendDown:
		return Decision{Reason: constants.ReasonCloudUnavailable}
	}
	return Decision{Cloud: true, RemainingQuota: f.RemainingQuota}
}
