// Package movement models the account movements the ledger worker records
// when it consumes fee events. A movement is append-only; corrections are new
// movements, never updates.
package movement

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrInvalidAccount = errors.New("account id must not be empty")
	ErrInvalidAmount  = errors.New("movement amount must be positive")
	ErrInvalidType    = errors.New("movement type must be C or D")
)

// Type is the movement direction on the account
type Type string

const (
	TypeCredit Type = "C"
	TypeDebit  Type = "D"
)

// Movement is a single credit or debit applied to a checking account
type Movement struct {
	ID           uuid.UUID       `json:"id"`
	AccountID    uuid.UUID       `json:"account_id"`
	Type         Type            `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	MovementDate time.Time       `json:"movement_date"`
}

// NewMovement creates a movement after validating its invariants
func NewMovement(accountID uuid.UUID, movementType Type, amount decimal.Decimal) (*Movement, error) {
	if accountID == uuid.Nil {
		return nil, ErrInvalidAccount
	}
	if movementType != TypeCredit && movementType != TypeDebit {
		return nil, ErrInvalidType
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	return &Movement{
		ID:           uuid.New(),
		AccountID:    accountID,
		Type:         movementType,
		Amount:       amount,
		MovementDate: time.Now().UTC(),
	}, nil
}
