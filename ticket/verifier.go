package ticket

import (
	"context"
	"errors"
	"strings"
	"time"
)

// UnknownOperator is recorded when a scan arrives without a scanner identity.
const UnknownOperator = "unknown operator"

// Verifier decides admission for presented tokens. All state lives in the
// Store; the verifier itself is stateless and safe for concurrent use.
type Verifier struct {
	store Store
	now   func() time.Time
}

func NewVerifier(store Store) *Verifier {
	return &Verifier{
		store: store,
		now:   time.Now,
	}
}

// NewVerifierWithClock lets tests pin the scan timestamp.
func NewVerifierWithClock(store Store, now func() time.Time) *Verifier {
	return &Verifier{
		store: store,
		now:   now,
	}
}

// Verify performs the unscanned-to-scanned transition for token. Outcomes:
//
//   - record absent or expired: rejected, nothing mutated
//   - first scan: admitted with fresh scan metadata
//   - repeat scan: admitted with already_scanned set and the original metadata
//
// A store failure is returned as an error so callers can fail closed without
// confusing it with a genuinely invalid token.
func (v *Verifier) Verify(ctx context.Context, token, scannedBy string) (Result, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Result{}, &ValidationError{Field: "token", Reason: "required"}
	}

	if strings.TrimSpace(scannedBy) == "" {
		scannedBy = UnknownOperator
	}

	rec, fresh, err := v.store.MarkScanned(ctx, token, scannedBy, v.now().UTC())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Result{Rejected: RejectedInvalid}, nil
		}
		return Result{}, err
	}

	return Result{
		Admitted:       true,
		AlreadyScanned: !fresh,
		Record:         rec,
	}, nil
}

// Status reports the current state of a token without mutating anything.
func (v *Verifier) Status(ctx context.Context, token string) (Result, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Result{}, &ValidationError{Field: "token", Reason: "required"}
	}

	rec, err := v.store.Get(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Result{Rejected: RejectedInvalid}, nil
		}
		return Result{}, err
	}

	return Result{
		Admitted:       true,
		AlreadyScanned: rec.Scanned,
		Record:         rec,
	}, nil
}
