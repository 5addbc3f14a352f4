// Package events defines the integration events exchanged between the transfer
// service, the fee worker, and the ledger worker. Field names are part of the
// wire contract shared with the other services and must not change.
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Topic names for the event bus. Delivery on both topics is at-least-once;
// consumers must rely on the embedded idempotency keys, never on ordering.
const (
	TopicTransferCompleted = "transfer.completed"
	TopicFeeApplied        = "fee.applied"
)

// TransferCompleted is published once a transfer saga ends in success.
// IdempotencyKey is the transfer id; downstream consumers derive their own
// keys from it so the whole chain deduplicates on redelivery.
type TransferCompleted struct {
	TransferID           uuid.UUID       `json:"transferId"`
	OriginAccountID      uuid.UUID       `json:"originAccountId"`
	DestinationAccountID uuid.UUID       `json:"destinationAccountId"`
	Amount               decimal.Decimal `json:"amount"`
	MovementDate         time.Time       `json:"movementDate"`
	IdempotencyKey       string          `json:"idempotencyKey"`
}

// FeeApplied is published by the fee worker after a fee record is created.
// The ledger applies the compensating debit keyed by IdempotencyKey.
type FeeApplied struct {
	FeeID             uuid.UUID       `json:"feeId"`
	CheckingAccountID uuid.UUID       `json:"checkingAccountId"`
	Amount            decimal.Decimal `json:"amount"`
	MovementDate      time.Time       `json:"movementDate"`
	IdempotencyKey    string          `json:"idempotencyKey"`
}
