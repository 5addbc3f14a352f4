package fee

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrInvalidAccount = errors.New("checking account id must not be empty")
	ErrInvalidAmount  = errors.New("fee amount must be positive")
)

// Fee records a transfer fee charged against the origin account. Exactly one
// fee exists per distinct transfer-derived idempotency key.
type Fee struct {
	ID                uuid.UUID       `json:"id"`
	CheckingAccountID uuid.UUID       `json:"checking_account_id"`
	Amount            decimal.Decimal `json:"amount"`
	MovementDate      time.Time       `json:"movement_date"`
}

// NewFee creates a fee for the given account
func NewFee(checkingAccountID uuid.UUID, amount decimal.Decimal) (*Fee, error) {
	if checkingAccountID == uuid.Nil {
		return nil, ErrInvalidAccount
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	return &Fee{
		ID:                uuid.New(),
		CheckingAccountID: checkingAccountID,
		Amount:            amount,
		MovementDate:      time.Now().UTC(),
	}, nil
}
