package outbox_poller

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/banking-transfer-service/internal/domain/events"
	"github.com/banking-transfer-service/internal/domain/outbox"
)

// MockOutboxRepo for testing
type MockOutboxRepo struct {
	mock.Mock
}

func (m *MockOutboxRepo) Create(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxRepo) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) UpdateStatus(ctx context.Context, id int64, status outbox.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepo) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepo) GetByTransferID(ctx context.Context, transferID uuid.UUID) (*outbox.Message, error) {
	args := m.Called(ctx, transferID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) WithTx(tx pgx.Tx) outbox.Repository {
	args := m.Called(tx)
	return args.Get(0).(outbox.Repository)
}

// MockProducer for testing
type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockProducer) Close() error {
	args := m.Called()
	return args.Error(0)
}

func newOutboxMessage(t *testing.T) *outbox.Message {
	t.Helper()
	transferID := uuid.New()
	event := &events.TransferCompleted{
		TransferID:           transferID,
		OriginAccountID:      uuid.New(),
		DestinationAccountID: uuid.New(),
		Amount:               decimal.RequireFromString("250.00"),
		MovementDate:         time.Now().UTC(),
		IdempotencyKey:       transferID.String(),
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	return &outbox.Message{
		ID:             1,
		TransferID:     transferID,
		IdempotencyKey: transferID.String(),
		Payload:        payload,
		Status:         outbox.StatusPending,
		Attempts:       0,
		CreatedAt:      time.Now(),
	}
}

func TestKafkaEventPublisher_PublishEvent(t *testing.T) {
	logger := slog.Default()

	t.Run("publishes and marks processed", func(t *testing.T) {
		mockRepo := &MockOutboxRepo{}
		mockProducer := &MockProducer{}
		publisher := NewKafkaEventPublisher(mockRepo, mockProducer, logger)
		message := newOutboxMessage(t)

		mockProducer.On("Publish", mock.Anything, message.IdempotencyKey, mock.AnythingOfType("*events.TransferCompleted")).Return(nil).Once()
		mockRepo.On("UpdateStatus", mock.Anything, int64(1), outbox.StatusProcessed).Return(nil).Once()

		err := publisher.PublishEvent(context.Background(), message)
		assert.NoError(t, err)

		mockRepo.AssertExpectations(t)
		mockProducer.AssertExpectations(t)
	})

	t.Run("broker failure leaves the message pending", func(t *testing.T) {
		mockRepo := &MockOutboxRepo{}
		mockProducer := &MockProducer{}
		publisher := NewKafkaEventPublisher(mockRepo, mockProducer, logger)
		message := newOutboxMessage(t)

		mockProducer.On("Publish", mock.Anything, message.IdempotencyKey, mock.Anything).Return(errors.New("broker down")).Once()

		err := publisher.PublishEvent(context.Background(), message)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to publish transfer completed event")

		mockRepo.AssertExpectations(t)
		mockProducer.AssertExpectations(t)
	})

	t.Run("corrupt payload is marked failed", func(t *testing.T) {
		mockRepo := &MockOutboxRepo{}
		mockProducer := &MockProducer{}
		publisher := NewKafkaEventPublisher(mockRepo, mockProducer, logger)
		message := newOutboxMessage(t)
		message.Payload = []byte("not json")

		mockRepo.On("UpdateStatus", mock.Anything, int64(1), outbox.StatusFailedToPublish).Return(nil).Once()

		err := publisher.PublishEvent(context.Background(), message)
		assert.Error(t, err)

		mockRepo.AssertExpectations(t)
		mockProducer.AssertExpectations(t)
	})

	t.Run("published but mark fails", func(t *testing.T) {
		mockRepo := &MockOutboxRepo{}
		mockProducer := &MockProducer{}
		publisher := NewKafkaEventPublisher(mockRepo, mockProducer, logger)
		message := newOutboxMessage(t)

		mockProducer.On("Publish", mock.Anything, message.IdempotencyKey, mock.Anything).Return(nil).Once()
		mockRepo.On("UpdateStatus", mock.Anything, int64(1), outbox.StatusProcessed).Return(errors.New("db error")).Once()

		err := publisher.PublishEvent(context.Background(), message)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to mark outbox")

		mockRepo.AssertExpectations(t)
		mockProducer.AssertExpectations(t)
	})
}
