package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadySettled   = errors.New("round already settled")
	ErrRoundClosed      = errors.New("betting window closed")
	ErrRoundMismatch    = errors.New("wager targets a round that is not current")
	ErrPermissionDenied = errors.New("permission denied")
)

// ValidationError describes a malformed wager submission. It is surfaced
// synchronously to the submitter; nothing is persisted when one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid wager: %s: %s", e.Field, e.Reason)
}

// transientError marks an error as retryable. Stores wrap connection-level
// and serialization failures with Transient so the settlement loop can decide
// whether a retry is worthwhile.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient wraps err to mark it as retryable. Wrapping nil returns nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err (or any error in its chain) was marked
// retryable via Transient.
func IsTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}
