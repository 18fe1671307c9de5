package ticket

import (
	"context"
	"sync"
	"time"
)

// Store holds verification records keyed by token, with absolute expiry set at
// issuance. Implementations must serialize concurrent MarkScanned calls for the
// same token so that at most one caller observes the fresh transition.
type Store interface {
	// Get returns the record for token, or ErrNotFound if it is absent or expired.
	Get(ctx context.Context, token string) (*Record, error)

	// SetWithExpiry writes a new record that becomes unretrievable after ttl.
	SetWithExpiry(ctx context.Context, token string, rec *Record, ttl time.Duration) error

	// RemainingTTL returns how long the record stays retrievable.
	RemainingTTL(ctx context.Context, token string) (time.Duration, error)

	// MarkScanned atomically transitions the record from unscanned to scanned
	// without touching its expiry. It returns the record after the call and
	// whether this call performed the transition. If the record was already
	// scanned, fresh is false and the record carries the original scan metadata.
	MarkScanned(ctx context.Context, token, scannedBy string, at time.Time) (rec *Record, fresh bool, err error)

	// Delete removes the record. Used to roll back a failed issuance.
	Delete(ctx context.Context, token string) error
}

type memoryEntry struct {
	rec       Record
	expiresAt time.Time
}

// MemoryStore is an in-process Store. It backs tests and single-node
// deployments; expiry is enforced lazily on access.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// NewMemoryStoreWithClock lets tests control expiry deterministically.
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     now,
	}
}

// get returns the live entry for token, dropping it if expired. Caller holds mu.
func (s *MemoryStore) get(token string) (memoryEntry, bool) {
	entry, ok := s.entries[token]
	if !ok {
		return memoryEntry{}, false
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, token)
		return memoryEntry{}, false
	}
	return entry, true
}

func (s *MemoryStore) Get(ctx context.Context, token string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.get(token)
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRecord(entry.rec), nil
}

func (s *MemoryStore) SetWithExpiry(ctx context.Context, token string, rec *Record, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[token] = memoryEntry{
		rec:       *rec,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

func (s *MemoryStore) RemainingTTL(ctx context.Context, token string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.get(token)
	if !ok {
		return 0, ErrNotFound
	}
	return entry.expiresAt.Sub(s.now()), nil
}

func (s *MemoryStore) MarkScanned(ctx context.Context, token, scannedBy string, at time.Time) (*Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.get(token)
	if !ok {
		return nil, false, ErrNotFound
	}

	if entry.rec.Scanned {
		return cloneRecord(entry.rec), false, nil
	}

	entry.rec.Scanned = true
	entry.rec.ScannedAt = &at
	entry.rec.ScannedBy = &scannedBy
	// expiresAt is left untouched: scanning must not extend the record's life.
	s.entries[token] = entry

	return cloneRecord(entry.rec), true, nil
}

// cloneRecord returns an independent copy so callers cannot mutate the stored
// scan metadata through the returned pointers.
func cloneRecord(rec Record) *Record {
	out := rec
	if rec.ScannedAt != nil {
		at := *rec.ScannedAt
		out.ScannedAt = &at
	}
	if rec.ScannedBy != nil {
		by := *rec.ScannedBy
		out.ScannedBy = &by
	}
	return &out
}

func (s *MemoryStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, token)
	return nil
}
