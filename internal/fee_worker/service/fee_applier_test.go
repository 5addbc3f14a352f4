package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banking-transfer-service/internal/domain/events"
	"github.com/banking-transfer-service/internal/domain/fee"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type fakeFeeRepo struct {
	created   []*fee.Fee
	createErr error
}

func (f *fakeFeeRepo) Create(ctx context.Context, record *fee.Fee) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, record)
	return nil
}

func (f *fakeFeeRepo) GetByID(ctx context.Context, id uuid.UUID) (*fee.Fee, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeFeeRepo) WithTx(tx pgx.Tx) fee.Repository {
	return f
}

// fakeProcessedStore tracks marked keys in memory
type fakeProcessedStore struct {
	marked  map[string]bool
	markErr error
}

func newFakeProcessedStore() *fakeProcessedStore {
	return &fakeProcessedStore{marked: map[string]bool{}}
}

func (f *fakeProcessedStore) WasProcessed(ctx context.Context, key string) (bool, error) {
	return f.marked[key], nil
}

func (f *fakeProcessedStore) MarkProcessed(ctx context.Context, key string) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.marked[key] = true
	return nil
}

type publishedMessage struct {
	key   string
	value interface{}
}

type fakePublisher struct {
	published  []publishedMessage
	publishErr error
}

func (f *fakePublisher) Publish(ctx context.Context, key string, value interface{}) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, publishedMessage{key: key, value: value})
	return nil
}

func (f *fakePublisher) Close() error {
	return nil
}

func newTransferCompletedEvent() *events.TransferCompleted {
	transferID := uuid.New()
	return &events.TransferCompleted{
		TransferID:           transferID,
		OriginAccountID:      uuid.New(),
		DestinationAccountID: uuid.New(),
		Amount:               decimal.RequireFromString("250.00"),
		MovementDate:         time.Now().UTC(),
		IdempotencyKey:       transferID.String(),
	}
}

func TestFeeApplier_ApplyFee(t *testing.T) {
	feeAmount := decimal.RequireFromString("1.00")

	t.Run("applies fee and publishes event", func(t *testing.T) {
		feeRepo := &fakeFeeRepo{}
		store := newFakeProcessedStore()
		publisher := &fakePublisher{}
		applier := NewFeeApplier(newTestLogger(), feeRepo, store, publisher, feeAmount)
		event := newTransferCompletedEvent()

		err := applier.ApplyFee(context.Background(), event)
		require.NoError(t, err)

		require.Len(t, feeRepo.created, 1)
		created := feeRepo.created[0]
		assert.Equal(t, event.OriginAccountID, created.CheckingAccountID)
		assert.True(t, created.Amount.Equal(feeAmount))

		feeKey := event.IdempotencyKey + "-fee"
		require.Len(t, publisher.published, 1)
		assert.Equal(t, feeKey, publisher.published[0].key)

		feeApplied, ok := publisher.published[0].value.(*events.FeeApplied)
		require.True(t, ok)
		assert.Equal(t, created.ID, feeApplied.FeeID)
		assert.Equal(t, created.CheckingAccountID, feeApplied.CheckingAccountID)
		assert.Equal(t, feeKey, feeApplied.IdempotencyKey)

		assert.True(t, store.marked[feeKey])
	})

	t.Run("redelivered event is a no-op", func(t *testing.T) {
		feeRepo := &fakeFeeRepo{}
		store := newFakeProcessedStore()
		publisher := &fakePublisher{}
		applier := NewFeeApplier(newTestLogger(), feeRepo, store, publisher, feeAmount)
		event := newTransferCompletedEvent()

		require.NoError(t, applier.ApplyFee(context.Background(), event))
		require.NoError(t, applier.ApplyFee(context.Background(), event))

		assert.Len(t, feeRepo.created, 1)
		assert.Len(t, publisher.published, 1)
	})

	t.Run("zero fee marks the key without a record", func(t *testing.T) {
		feeRepo := &fakeFeeRepo{}
		store := newFakeProcessedStore()
		publisher := &fakePublisher{}
		applier := NewFeeApplier(newTestLogger(), feeRepo, store, publisher, decimal.Zero)
		event := newTransferCompletedEvent()

		err := applier.ApplyFee(context.Background(), event)
		require.NoError(t, err)

		assert.Empty(t, feeRepo.created)
		assert.Empty(t, publisher.published)
		assert.True(t, store.marked[event.IdempotencyKey+"-fee"])
	})

	t.Run("persistence failure leaves the key unmarked", func(t *testing.T) {
		repoErr := errors.New("db error")
		feeRepo := &fakeFeeRepo{createErr: repoErr}
		store := newFakeProcessedStore()
		publisher := &fakePublisher{}
		applier := NewFeeApplier(newTestLogger(), feeRepo, store, publisher, feeAmount)
		event := newTransferCompletedEvent()

		err := applier.ApplyFee(context.Background(), event)
		require.Error(t, err)
		assert.ErrorIs(t, err, repoErr)
		assert.Empty(t, publisher.published)
		assert.False(t, store.marked[event.IdempotencyKey+"-fee"])
	})

	t.Run("publish failure leaves the key unmarked", func(t *testing.T) {
		publishErr := errors.New("broker down")
		feeRepo := &fakeFeeRepo{}
		store := newFakeProcessedStore()
		publisher := &fakePublisher{publishErr: publishErr}
		applier := NewFeeApplier(newTestLogger(), feeRepo, store, publisher, feeAmount)
		event := newTransferCompletedEvent()

		err := applier.ApplyFee(context.Background(), event)
		require.Error(t, err)
		assert.ErrorIs(t, err, publishErr)
		assert.False(t, store.marked[event.IdempotencyKey+"-fee"])
	})
}
