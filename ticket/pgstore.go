package ticket

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore keeps verification records in the ticket_tokens table. Expiry is
// enforced by predicating every read and update on expires_at, so no sweep is
// needed; the scan transition is a conditional UPDATE, which gives the
// at-most-once-fresh guarantee without an application-side lock.
type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

const recordColumns = `booking_id, user_id, user_email, user_name, event_id,
	event_name, event_date, event_venue, booking_date, scanned, scanned_at, scanned_by`

func (s *PGStore) Get(ctx context.Context, token string) (*Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM ticket_tokens
		WHERE token = $1 AND expires_at > now()
	`

	var rec Record
	err := s.db.QueryRow(ctx, query, token).Scan(
		&rec.BookingID,
		&rec.UserID,
		&rec.UserEmail,
		&rec.UserName,
		&rec.EventID,
		&rec.EventName,
		&rec.EventDate,
		&rec.EventVenue,
		&rec.BookingDate,
		&rec.Scanned,
		&rec.ScannedAt,
		&rec.ScannedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, &StoreUnavailableError{Op: "get", Err: err}
	}

	return &rec, nil
}

func (s *PGStore) SetWithExpiry(ctx context.Context, token string, rec *Record, ttl time.Duration) error {
	query := `
		INSERT INTO ticket_tokens (token, booking_id, user_id, user_email, user_name,
			event_id, event_name, event_date, event_venue, booking_date,
			scanned, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now() + make_interval(secs => $12))
	`

	_, err := s.db.Exec(ctx, query,
		token,
		rec.BookingID,
		rec.UserID,
		rec.UserEmail,
		rec.UserName,
		rec.EventID,
		rec.EventName,
		rec.EventDate,
		rec.EventVenue,
		rec.BookingDate,
		rec.Scanned,
		ttl.Seconds(),
	)
	if err != nil {
		return &StoreUnavailableError{Op: "set", Err: err}
	}

	return nil
}

func (s *PGStore) RemainingTTL(ctx context.Context, token string) (time.Duration, error) {
	query := `
		SELECT EXTRACT(EPOCH FROM (expires_at - now()))::float8
		FROM ticket_tokens
		WHERE token = $1 AND expires_at > now()
	`

	var seconds float64
	err := s.db.QueryRow(ctx, query, token).Scan(&seconds)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, &StoreUnavailableError{Op: "ttl", Err: err}
	}

	return time.Duration(seconds * float64(time.Second)), nil
}

func (s *PGStore) MarkScanned(ctx context.Context, token, scannedBy string, at time.Time) (*Record, bool, error) {
	// Conditional update: only one concurrent caller can flip scanned=false to
	// true. expires_at is not touched, so the original countdown is preserved.
	query := `
		UPDATE ticket_tokens
		SET scanned = true, scanned_at = $2, scanned_by = $3
		WHERE token = $1 AND scanned = false AND expires_at > now()
		RETURNING ` + recordColumns + `
	`

	var rec Record
	err := s.db.QueryRow(ctx, query, token, at, scannedBy).Scan(
		&rec.BookingID,
		&rec.UserID,
		&rec.UserEmail,
		&rec.UserName,
		&rec.EventID,
		&rec.EventName,
		&rec.EventDate,
		&rec.EventVenue,
		&rec.BookingDate,
		&rec.Scanned,
		&rec.ScannedAt,
		&rec.ScannedBy,
	)
	if err == nil {
		return &rec, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, &StoreUnavailableError{Op: "mark_scanned", Err: err}
	}

	// The update matched nothing: either the record is gone, or another scan
	// got there first. A plain read settles which.
	existing, getErr := s.Get(ctx, token)
	if getErr != nil {
		return nil, false, getErr
	}
	return existing, false, nil
}

func (s *PGStore) Delete(ctx context.Context, token string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM ticket_tokens WHERE token = $1`, token)
	if err != nil {
		return &StoreUnavailableError{Op: "delete", Err: err}
	}
	return nil
}
