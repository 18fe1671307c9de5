package ticket

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"time"
)

// BookingLinker persists the issued token onto the durable booking row.
type BookingLinker interface {
	AttachToken(ctx context.Context, bookingID, token string) error
}

// IssueInput carries the booking plus the user and event snapshots captured at
// issuance time. The caller guarantees the booking is confirmed and has no
// token yet; the issuer does not re-check.
type IssueInput struct {
	BookingID   string
	UserID      string
	UserEmail   string
	UserName    string
	EventID     int64
	EventName   string
	EventDate   time.Time
	EventVenue  string
	BookingDate time.Time
}

// Issuer mints verification tokens for confirmed bookings.
type Issuer struct {
	store    Store
	bookings BookingLinker
	ttl      time.Duration
}

func NewIssuer(store Store, bookings BookingLinker) *Issuer {
	return &Issuer{
		store:    store,
		bookings: bookings,
		ttl:      DefaultTTL,
	}
}

// NewIssuerWithTTL overrides the retention window, mainly for tests.
func NewIssuerWithTTL(store Store, bookings BookingLinker, ttl time.Duration) *Issuer {
	return &Issuer{
		store:    store,
		bookings: bookings,
		ttl:      ttl,
	}
}

// Issue creates the verification record and attaches the token to the booking.
// Either both writes land or neither does: a failed store write returns before
// the booking is touched, and a failed booking update rolls the record back.
func (i *Issuer) Issue(ctx context.Context, input IssueInput) (string, error) {
	if err := validateIssueInput(input); err != nil {
		return "", err
	}

	token, err := generateToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	rec := &Record{
		BookingID:   input.BookingID,
		UserID:      input.UserID,
		UserEmail:   input.UserEmail,
		UserName:    input.UserName,
		EventID:     input.EventID,
		EventName:   input.EventName,
		EventDate:   input.EventDate,
		EventVenue:  input.EventVenue,
		BookingDate: input.BookingDate,
		Scanned:     false,
	}

	if err := i.store.SetWithExpiry(ctx, token, rec, i.ttl); err != nil {
		return "", err
	}

	if err := i.bookings.AttachToken(ctx, input.BookingID, token); err != nil {
		// Roll back the record so no orphaned token stays verifiable.
		if delErr := i.store.Delete(ctx, token); delErr != nil {
			log.Printf("Failed to roll back verification record for booking %s: %v", input.BookingID, delErr)
		}
		return "", fmt.Errorf("failed to attach token to booking %s: %w", input.BookingID, err)
	}

	return token, nil
}

func validateIssueInput(input IssueInput) error {
	switch {
	case input.BookingID == "":
		return &ValidationError{Field: "booking_id", Reason: "required"}
	case input.UserID == "":
		return &ValidationError{Field: "user_id", Reason: "required"}
	case input.UserName == "":
		return &ValidationError{Field: "user_name", Reason: "required"}
	case input.EventID == 0:
		return &ValidationError{Field: "event_id", Reason: "required"}
	case input.EventName == "":
		return &ValidationError{Field: "event_name", Reason: "required"}
	case input.EventDate.IsZero():
		return &ValidationError{Field: "event_date", Reason: "required"}
	}
	return nil
}

// generateToken returns a 128-bit random identifier in hex. Collisions are
// guarded by entropy, not by the store.
func generateToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
