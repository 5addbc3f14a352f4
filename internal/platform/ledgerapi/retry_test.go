package ledgerapi

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/banking-transfer-service/internal/config"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedClient returns the scripted errors in order, then succeeds.
type scriptedClient struct {
	movementErrs []error
	resolveErrs  []error
	movements    int
	resolves     int
	resolveID    uuid.UUID
}

func (s *scriptedClient) CreateMovement(ctx context.Context, accountNumber *int64, amount decimal.Decimal, movementType MovementType, authToken string, idempotencyKey string) error {
	s.movements++
	if len(s.movementErrs) > 0 {
		err := s.movementErrs[0]
		s.movementErrs = s.movementErrs[1:]
		return err
	}
	return nil
}

func (s *scriptedClient) ResolveAccountID(ctx context.Context, accountNumber int64, authToken string) (uuid.UUID, error) {
	s.resolves++
	if len(s.resolveErrs) > 0 {
		err := s.resolveErrs[0]
		s.resolveErrs = s.resolveErrs[1:]
		return uuid.Nil, err
	}
	return s.resolveID, nil
}

func newRetryTestConfig() *config.LedgerConfig {
	return &config.LedgerConfig{
		RetryMaxAttempts: 3,
		RetryBaseDelay:   time.Millisecond,
		RetryMaxJitter:   time.Millisecond,
	}
}

func TestRetryClient_CreateMovement_SucceedsAfterTransientFailures(t *testing.T) {
	inner := &scriptedClient{
		movementErrs: []error{
			&TransientError{Err: errors.New("connection refused")},
			&TransientError{Err: errors.New("connection refused")},
		},
	}
	client := NewRetryClient(inner, newTestLogger(), newRetryTestConfig())

	err := client.CreateMovement(context.Background(), nil, decimal.RequireFromString("10"), MovementDebit, "token", "key")

	require.NoError(t, err)
	assert.Equal(t, 3, inner.movements)
}

func TestRetryClient_CreateMovement_BusinessErrorNotRetried(t *testing.T) {
	inner := &scriptedClient{
		movementErrs: []error{ErrInactiveAccount},
	}
	client := NewRetryClient(inner, newTestLogger(), newRetryTestConfig())

	err := client.CreateMovement(context.Background(), nil, decimal.RequireFromString("10"), MovementDebit, "token", "key")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInactiveAccount)
	assert.Equal(t, 1, inner.movements)
}

func TestRetryClient_CreateMovement_ExhaustionStaysTransient(t *testing.T) {
	networkErr := errors.New("connection reset")
	inner := &scriptedClient{
		movementErrs: []error{
			&TransientError{Err: networkErr},
			&TransientError{Err: networkErr},
			&TransientError{Err: networkErr},
		},
	}
	client := NewRetryClient(inner, newTestLogger(), newRetryTestConfig())

	err := client.CreateMovement(context.Background(), nil, decimal.RequireFromString("10"), MovementDebit, "token", "key")

	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.ErrorIs(t, err, networkErr)
	assert.Equal(t, 3, inner.movements)
}

func TestRetryClient_CreateMovement_CancelledContextStopsRetrying(t *testing.T) {
	inner := &scriptedClient{
		movementErrs: []error{
			&TransientError{Err: errors.New("connection refused")},
			&TransientError{Err: errors.New("connection refused")},
		},
	}
	cfg := newRetryTestConfig()
	cfg.RetryBaseDelay = time.Minute
	client := NewRetryClient(inner, newTestLogger(), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.CreateMovement(ctx, nil, decimal.RequireFromString("10"), MovementDebit, "token", "key")

	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, inner.movements)
}

func TestRetryClient_ResolveAccountID_SucceedsAfterTransientFailure(t *testing.T) {
	accountID := uuid.New()
	inner := &scriptedClient{
		resolveErrs: []error{&TransientError{Err: errors.New("gateway timeout")}},
		resolveID:   accountID,
	}
	client := NewRetryClient(inner, newTestLogger(), newRetryTestConfig())

	id, err := client.ResolveAccountID(context.Background(), 1234, "token")

	require.NoError(t, err)
	assert.Equal(t, accountID, id)
	assert.Equal(t, 2, inner.resolves)
}

func TestRetryClient_ResolveAccountID_InvalidAccountNotRetried(t *testing.T) {
	inner := &scriptedClient{
		resolveErrs: []error{ErrInvalidAccount},
	}
	client := NewRetryClient(inner, newTestLogger(), newRetryTestConfig())

	_, err := client.ResolveAccountID(context.Background(), 1234, "token")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidAccount)
	assert.Equal(t, 1, inner.resolves)
}
