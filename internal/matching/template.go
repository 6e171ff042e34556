package matching

import (
	"time"

	"github.com/google/uuid"
)

// Template is a recurring-payment template owned and persisted by the
// document-management layer; this package only reads it to decide linking.
type Template struct {
	ID                   uuid.UUID  `json:"id"`
	VendorFingerprint    string     `json:"vendor_fingerprint"`
	AmountMin            *float64   `json:"amount_min,omitempty"`
	AmountMax            *float64   `json:"amount_max,omitempty"`
	DueDayOfMonth        int        `json:"due_day_of_month"`
	Currency             string     `json:"currency"`
	MatchedDocumentCount int        `json:"matched_document_count"`
	LastMatchedAt        *time.Time `json:"last_matched_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}
