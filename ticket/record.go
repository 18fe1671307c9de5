package ticket

import (
	"time"
)

// DefaultTTL is how long a verification record stays retrievable after issuance.
// Scanning does not extend it.
const DefaultTTL = 48 * time.Hour

// Record is the cached verification document for one issued ticket token.
// User and event fields are snapshots taken at issuance so verification keeps
// working even if the live rows change or disappear later.
type Record struct {
	BookingID   string     `json:"booking_id"`
	UserID      string     `json:"user_id"`
	UserEmail   string     `json:"user_email"`
	UserName    string     `json:"user_name"`
	EventID     int64      `json:"event_id"`
	EventName   string     `json:"event_name"`
	EventDate   time.Time  `json:"event_date"`
	EventVenue  string     `json:"event_venue"`
	BookingDate time.Time  `json:"booking_date"`
	Scanned     bool       `json:"scanned"`
	ScannedAt   *time.Time `json:"scanned_at,omitempty"`
	ScannedBy   *string    `json:"scanned_by,omitempty"`
}

// Result is the tri-state outcome of a verification or status call.
type Result struct {
	Admitted       bool    `json:"admitted"`
	AlreadyScanned bool    `json:"already_scanned"`
	Rejected       string  `json:"rejected,omitempty"`
	Record         *Record `json:"record,omitempty"`
}

// RejectedInvalid is the only rejection reason exposed for missing records.
// Absent and expired are deliberately indistinguishable to callers.
const RejectedInvalid = "invalid or expired"
