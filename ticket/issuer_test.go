package ticket

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeLinker struct {
	attached map[string]string
	fail     error
}

func newFakeLinker() *fakeLinker {
	return &fakeLinker{attached: make(map[string]string)}
}

func (l *fakeLinker) AttachToken(ctx context.Context, bookingID, token string) error {
	if l.fail != nil {
		return l.fail
	}
	l.attached[bookingID] = token
	return nil
}

func validInput() IssueInput {
	return IssueInput{
		BookingID:   "booking-1",
		UserID:      "user-1",
		UserEmail:   "ada@campus.edu",
		UserName:    "Ada Lovelace",
		EventID:     42,
		EventName:   "Spring Hackathon",
		EventDate:   time.Date(2026, 4, 18, 9, 0, 0, 0, time.UTC),
		EventVenue:  "Main Auditorium",
		BookingDate: time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestIssueWritesRecordAndLinksBooking(t *testing.T) {
	store := NewMemoryStore()
	linker := newFakeLinker()
	issuer := NewIssuer(store, linker)

	token, err := issuer.Issue(context.Background(), validInput())
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if len(token) != 32 {
		t.Fatalf("expected 32-char hex token, got %q", token)
	}

	rec, err := store.Get(context.Background(), token)
	if err != nil {
		t.Fatalf("record not stored: %v", err)
	}
	if rec.Scanned || rec.ScannedAt != nil || rec.ScannedBy != nil {
		t.Fatalf("fresh record must be unscanned, got %+v", rec)
	}
	if rec.UserName != "Ada Lovelace" || rec.EventVenue != "Main Auditorium" {
		t.Fatalf("snapshot fields not captured: %+v", rec)
	}

	if linker.attached["booking-1"] != token {
		t.Fatalf("token not attached to booking, got %q", linker.attached["booking-1"])
	}
}

func TestIssueUsesConfiguredTTL(t *testing.T) {
	current := time.Date(2026, 4, 17, 9, 0, 0, 0, time.UTC)
	store := NewMemoryStoreWithClock(func() time.Time { return current })
	issuer := NewIssuerWithTTL(store, newFakeLinker(), 2*time.Hour)

	token, err := issuer.Issue(context.Background(), validInput())
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	remaining, err := store.RemainingTTL(context.Background(), token)
	if err != nil {
		t.Fatalf("ttl failed: %v", err)
	}
	if remaining != 2*time.Hour {
		t.Fatalf("expected 2h TTL, got %v", remaining)
	}
}

func TestIssueTokensAreUnique(t *testing.T) {
	store := NewMemoryStore()
	issuer := NewIssuer(store, newFakeLinker())

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := issuer.Issue(context.Background(), validInput())
		if err != nil {
			t.Fatalf("issue %d failed: %v", i, err)
		}
		if seen[token] {
			t.Fatalf("duplicate token issued: %s", token)
		}
		seen[token] = true
	}
}

func TestIssueRollsBackRecordWhenLinkFails(t *testing.T) {
	store := NewMemoryStore()
	linker := newFakeLinker()
	linker.fail = errors.New("bookings table unavailable")
	issuer := NewIssuer(store, linker)

	token, err := issuer.Issue(context.Background(), validInput())
	if err == nil {
		t.Fatalf("expected issue to fail when booking link fails")
	}
	if token != "" {
		t.Fatalf("no token may be returned on failure, got %q", token)
	}

	// The record written before the failed link must be gone: an unstored or
	// unlinked token must never be verifiable.
	// We cannot know the minted token, so the store must simply be empty.
	if len(store.entries) != 0 {
		t.Fatalf("expected rolled-back store, found %d entries", len(store.entries))
	}
}

func TestIssueValidatesInput(t *testing.T) {
	issuer := NewIssuer(NewMemoryStore(), newFakeLinker())

	cases := []struct {
		name   string
		mutate func(*IssueInput)
	}{
		{"missing booking id", func(in *IssueInput) { in.BookingID = "" }},
		{"missing user id", func(in *IssueInput) { in.UserID = "" }},
		{"missing user name", func(in *IssueInput) { in.UserName = "" }},
		{"missing event id", func(in *IssueInput) { in.EventID = 0 }},
		{"missing event name", func(in *IssueInput) { in.EventName = "" }},
		{"missing event date", func(in *IssueInput) { in.EventDate = time.Time{} }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validInput()
			tc.mutate(&input)
			_, err := issuer.Issue(context.Background(), input)
			if !IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}
