package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/banking-transfer-service/internal/domain/events"
)

type MockFeeApplier struct {
	mock.Mock
}

func (m *MockFeeApplier) ApplyFee(ctx context.Context, event *events.TransferCompleted) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type MockDLQProducer struct {
	mock.Mock
}

func (m *MockDLQProducer) PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error {
	args := m.Called(ctx, key, originalMessageValue, reason)
	return args.Error(0)
}

func (m *MockDLQProducer) Close() error {
	args := m.Called()
	return args.Error(0)
}

func marshalTransferCompleted(t *testing.T) ([]byte, *events.TransferCompleted) {
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
	value, err := json.Marshal(event)
	require.NoError(t, err)
	return value, event
}

func TestTransferCompletedHandler_HandleMessage(t *testing.T) {
	logger := slog.Default()

	t.Run("valid event applies fee and commits", func(t *testing.T) {
		mockApplier := new(MockFeeApplier)
		mockDLQ := new(MockDLQProducer)
		handler := NewTransferCompletedHandler(logger, mockApplier, mockDLQ)

		value, event := marshalTransferCompleted(t)
		mockApplier.On("ApplyFee", mock.Anything, mock.MatchedBy(func(e *events.TransferCompleted) bool {
			return e.TransferID == event.TransferID && e.IdempotencyKey == event.IdempotencyKey
		})).Return(nil).Once()

		err := handler.HandleMessage(context.Background(), []byte(event.IdempotencyKey), value)

		assert.NoError(t, err)
		mockApplier.AssertExpectations(t)
		mockDLQ.AssertNotCalled(t, "PublishToDLQ")
	})

	t.Run("fee failure is returned for redelivery", func(t *testing.T) {
		mockApplier := new(MockFeeApplier)
		mockDLQ := new(MockDLQProducer)
		handler := NewTransferCompletedHandler(logger, mockApplier, mockDLQ)

		value, _ := marshalTransferCompleted(t)
		mockApplier.On("ApplyFee", mock.Anything, mock.Anything).Return(errors.New("db error")).Once()

		err := handler.HandleMessage(context.Background(), []byte("key"), value)

		assert.Error(t, err)
		mockDLQ.AssertNotCalled(t, "PublishToDLQ")
	})

	t.Run("unparseable message goes to DLQ and commits", func(t *testing.T) {
		mockApplier := new(MockFeeApplier)
		mockDLQ := new(MockDLQProducer)
		handler := NewTransferCompletedHandler(logger, mockApplier, mockDLQ)

		value := []byte("not json")
		mockDLQ.On("PublishToDLQ", mock.Anything, "key", value, mock.AnythingOfType("string")).Return(nil).Once()

		err := handler.HandleMessage(context.Background(), []byte("key"), value)

		assert.NoError(t, err)
		mockApplier.AssertNotCalled(t, "ApplyFee")
		mockDLQ.AssertExpectations(t)
	})

	t.Run("unparseable message with DLQ failure is retried", func(t *testing.T) {
		mockApplier := new(MockFeeApplier)
		mockDLQ := new(MockDLQProducer)
		handler := NewTransferCompletedHandler(logger, mockApplier, mockDLQ)

		value := []byte("not json")
		mockDLQ.On("PublishToDLQ", mock.Anything, "key", value, mock.AnythingOfType("string")).Return(errors.New("broker down")).Once()

		err := handler.HandleMessage(context.Background(), []byte("key"), value)

		assert.Error(t, err)
		mockDLQ.AssertExpectations(t)
	})

	t.Run("unparseable message without DLQ is retried", func(t *testing.T) {
		mockApplier := new(MockFeeApplier)
		handler := NewTransferCompletedHandler(logger, mockApplier, nil)

		err := handler.HandleMessage(context.Background(), []byte("key"), []byte("not json"))

		assert.Error(t, err)
		mockApplier.AssertNotCalled(t, "ApplyFee")
	})
}
