package ledgerapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/banking-transfer-service/internal/config"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
)

// BreakerClient stops issuing ledger calls after a run of consecutive
// transient failures. While the circuit is open every call fails fast as a
// transient error; after the open window a single probe call decides whether
// the circuit closes again. Business rejections never trip the breaker.
type BreakerClient struct {
	inner   Client
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewBreakerClient decorates the given client with the circuit breaker.
// It is meant to wrap the retry decorator so only exhausted retries count.
func NewBreakerClient(inner Client, logger *slog.Logger, cfg *config.LedgerConfig) *BreakerClient {
	threshold := cfg.BreakerThreshold

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ledger",
		MaxRequests: 1, // single probe in half-open state
		Timeout:     cfg.BreakerOpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			// Business rejections are a healthy dependency saying no.
			return err == nil || !IsTransient(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Ledger circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	return &BreakerClient{
		inner:   inner,
		breaker: breaker,
		logger:  logger,
	}
}

// CreateMovement runs the movement call through the breaker
func (b *BreakerClient) CreateMovement(ctx context.Context, accountNumber *int64, amount decimal.Decimal, movementType MovementType, authToken string, idempotencyKey string) error {
	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, b.inner.CreateMovement(ctx, accountNumber, amount, movementType, authToken, idempotencyKey)
	})
	return b.mapBreakerError(err)
}

// ResolveAccountID runs the lookup through the breaker
func (b *BreakerClient) ResolveAccountID(ctx context.Context, accountNumber int64, authToken string) (uuid.UUID, error) {
	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.inner.ResolveAccountID(ctx, accountNumber, authToken)
	})
	if err != nil {
		return uuid.Nil, b.mapBreakerError(err)
	}
	return result.(uuid.UUID), nil
}

// mapBreakerError turns breaker fail-fast errors into transient failures so
// callers classify an open circuit as infrastructure, not business.
func (b *BreakerClient) mapBreakerError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &TransientError{Err: fmt.Errorf("ledger circuit open: %w", err)}
	}
	return err
}
