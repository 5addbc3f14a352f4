package outbox

import (
	"encoding/json"
	"time"

	"github.com/banking-transfer-service/internal/domain/events"
	"github.com/google/uuid"
)

// Status defines message publishing states
type Status string

const (
	StatusPending         Status = "PENDING"
	StatusProcessed       Status = "PROCESSED"
	StatusFailedToPublish Status = "FAILED_TO_PUBLISH"
)

// Message stores a transfer-completed event for reliable publishing. It is
// inserted in the same database transaction as the transfer record, so an
// event exists if and only if the record says Completed.
type Message struct {
	ID             int64           `json:"id"`
	TransferID     uuid.UUID       `json:"transfer_id"`
	IdempotencyKey string          `json:"idempotency_key"`
	Payload        json.RawMessage `json:"payload"`
	Status         Status          `json:"status"`
	Attempts       int             `json:"attempts"`
	CreatedAt      time.Time       `json:"created_at"`
	LastAttemptAt  *time.Time      `json:"last_attempt_at,omitempty"`
}

// NewMessage wraps a transfer-completed event as a pending outbox message
func NewMessage(event *events.TransferCompleted) (*Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	return &Message{
		TransferID:     event.TransferID,
		IdempotencyKey: event.IdempotencyKey,
		Payload:        payload,
		Status:         StatusPending,
		Attempts:       0,
		CreatedAt:      time.Now(),
	}, nil
}

// GetEvent extracts the transfer-completed event from the payload
func (m *Message) GetEvent() (*events.TransferCompleted, error) {
	var event events.TransferCompleted
	if err := json.Unmarshal(m.Payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
