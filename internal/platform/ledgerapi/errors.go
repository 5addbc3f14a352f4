package ledgerapi

import (
	"context"
	"errors"
	"fmt"
)

// Business rejections returned by the ledger service. These are never
// retried: replaying the call cannot change the outcome.
var (
	ErrInvalidAccount       = errors.New("ledger: invalid account")
	ErrInactiveAccount      = errors.New("ledger: inactive account")
	ErrInvalidMovementValue = errors.New("ledger: invalid movement value")
	ErrInvalidMovementType  = errors.New("ledger: invalid movement type")
)

// TransientError wraps failures that are expected to be retry-resolvable:
// network errors, request deadlines, and 5xx responses. The retry decorator
// absorbs these; once retries are exhausted the wrapped error still reports
// as transient so the circuit breaker counts it.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("ledger: transient failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// APIError carries a non-transient ledger rejection that does not map to one
// of the known business errors.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ledger: %s (code=%s, status=%d)", e.Message, e.Code, e.StatusCode)
}

// IsTransient reports whether the error should be handled by the retry and
// circuit breaker policies rather than surfaced as a business failure.
func IsTransient(err error) bool {
	var transient *TransientError
	if errors.As(err, &transient) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
