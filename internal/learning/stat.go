package learning

import (
	"time"

	"github.com/jzielinski/invoicescan/constants"
)

// Promotion and blocking thresholds for learned phrases.
const (
	PromoteHits = 3
	BlockMisses = 2
)

// Stat tracks hit/miss counts for one (vendor, phrase, field) triple. Value
// type: every update produces a replacement record, never in-place mutation.
type Stat struct {
	VendorKey  string
	Phrase     string
	Field      constants.FieldType
	Hits       int
	Misses     int
	LastSeenAt time.Time
	State      constants.StatState
}

// NewStat creates a stat in the candidate state for a first observation.
func NewStat(vendorKey, phrase string, field constants.FieldType, now time.Time) Stat {
	return Stat{
		VendorKey:  vendorKey,
		Phrase:     phrase,
		Field:      field,
		LastSeenAt: now,
		State:      constants.StatCandidate,
	}
}

// WithHit returns the stat after a hit: counter bumped, LastSeenAt updated,
// and the transition predicate re-evaluated in the same step.
func (s Stat) WithHit(now time.Time) Stat {
	s.Hits++
	s.LastSeenAt = now
	return s.reevaluate()
}

// WithMiss returns the stat after a miss.
func (s Stat) WithMiss(now time.Time) Stat {
	s.Misses++
	s.LastSeenAt = now
	return s.reevaluate()
}

// Reset returns the stat to candidate with counters cleared. This is the only
// way out of promoted or blocked.
func (s Stat) Reset(now time.Time) Stat {
	s.Hits = 0
	s.Misses = 0
	s.LastSeenAt = now
	s.State = constants.StatCandidate
	return s
}

// reevaluate applies the transition predicate. Promoted and blocked are
// terminal: counters keep accumulating but the state never reverts on its own.
func (s Stat) reevaluate() Stat {
	if s.State != constants.StatCandidate {
		return s
	}
	switch {
	case s.Misses >= BlockMisses:
		s.State = constants.StatBlocked
	case s.Hits >= PromoteHits && s.Misses == 0:
		s.State = constants.StatPromoted
	}
	return s
}
