package ledgerapi

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/banking-transfer-service/internal/config"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RetryClient retries transient ledger failures with exponential backoff and
// jitter. Business rejections pass through untouched on the first attempt.
type RetryClient struct {
	inner       Client
	maxAttempts int
	baseDelay   time.Duration
	maxJitter   time.Duration
	logger      *slog.Logger
}

// NewRetryClient decorates the given client with the retry policy
func NewRetryClient(inner Client, logger *slog.Logger, cfg *config.LedgerConfig) *RetryClient {
	return &RetryClient{
		inner:       inner,
		maxAttempts: cfg.RetryMaxAttempts,
		baseDelay:   cfg.RetryBaseDelay,
		maxJitter:   cfg.RetryMaxJitter,
		logger:      logger,
	}
}

// CreateMovement retries transient movement failures. The idempotency key
// makes replays safe on the ledger side.
func (r *RetryClient) CreateMovement(ctx context.Context, accountNumber *int64, amount decimal.Decimal, movementType MovementType, authToken string, idempotencyKey string) error {
	return r.retry(ctx, func(ctx context.Context) error {
		return r.inner.CreateMovement(ctx, accountNumber, amount, movementType, authToken, idempotencyKey)
	})
}

// ResolveAccountID retries transient lookup failures
func (r *RetryClient) ResolveAccountID(ctx context.Context, accountNumber int64, authToken string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.retry(ctx, func(ctx context.Context) error {
		var innerErr error
		id, innerErr = r.inner.ResolveAccountID(ctx, accountNumber, authToken)
		return innerErr
	})
	return id, err
}

func (r *RetryClient) retry(ctx context.Context, operation func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return &TransientError{Err: ctx.Err()}
		default:
		}

		err := operation(ctx)
		if err == nil {
			return nil
		}

		if !IsTransient(err) {
			return err
		}
		lastErr = err

		if attempt < r.maxAttempts-1 {
			delay := r.backoff(attempt)
			r.logger.Warn("Transient ledger failure, retrying",
				"attempt", attempt+1,
				"max_attempts", r.maxAttempts,
				"delay", delay.String(),
				"error", err,
			)
			select {
			case <-ctx.Done():
				return &TransientError{Err: ctx.Err()}
			case <-time.After(delay):
			}
		}
	}

	return &TransientError{Err: lastErr}
}

// backoff is baseDelay * 2^attempt plus random jitter, spreading out retry
// storms from concurrent sagas hitting the same outage.
func (r *RetryClient) backoff(attempt int) time.Duration {
	delay := r.baseDelay * time.Duration(1<<uint(attempt))
	if r.maxJitter > 0 {
		delay += time.Duration(rand.Int63n(int64(r.maxJitter)))
	}
	return delay
}
