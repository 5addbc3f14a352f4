package transfer

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrInvalidOriginAccount      = errors.New("origin account id must not be empty")
	ErrInvalidDestinationAccount = errors.New("destination account id must not be empty")
	ErrSameAccount               = errors.New("origin and destination accounts must differ")
	ErrInvalidAmount             = errors.New("transfer amount must be positive")
	ErrInvalidStatus             = errors.New("invalid transfer status")
)

// Status defines the transfer record states
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusRolledBack Status = "ROLLED_BACK"
)

// InvalidStateTransitionError indicates a forbidden status change. It points
// at a programming or data error, not a business failure.
type InvalidStateTransitionError struct {
	From Status
	To   Status
}

func (e InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid transfer state transition from %s to %s", e.From, e.To)
}

// Transfer is the durable audit record of one transfer saga. It is created
// Pending, mutated only when the saga decides its outcome, and never deleted.
type Transfer struct {
	ID                   uuid.UUID       `json:"id"`
	OriginAccountID      uuid.UUID       `json:"origin_account_id"`
	DestinationAccountID uuid.UUID       `json:"destination_account_id"`
	Amount               decimal.Decimal `json:"amount"`
	MovementDate         time.Time       `json:"movement_date"`
	Status               Status          `json:"status"`
}

// NewTransfer creates a pending transfer after validating its invariants
func NewTransfer(originAccountID, destinationAccountID uuid.UUID, amount decimal.Decimal) (*Transfer, error) {
	if originAccountID == uuid.Nil {
		return nil, ErrInvalidOriginAccount
	}
	if destinationAccountID == uuid.Nil {
		return nil, ErrInvalidDestinationAccount
	}
	if originAccountID == destinationAccountID {
		return nil, ErrSameAccount
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	return &Transfer{
		ID:                   uuid.New(),
		OriginAccountID:      originAccountID,
		DestinationAccountID: destinationAccountID,
		Amount:               amount,
		MovementDate:         time.Now().UTC(),
		Status:               StatusPending,
	}, nil
}

// Reconstruct rebuilds a persisted transfer, revalidating every invariant so
// a corrupt row can never come back as a live record. Repositories must use
// this instead of assembling the struct field by field.
func Reconstruct(id, originAccountID, destinationAccountID uuid.UUID, amount decimal.Decimal, movementDate time.Time, status Status) (*Transfer, error) {
	if id == uuid.Nil {
		return nil, errors.New("transfer id must not be empty")
	}
	if originAccountID == uuid.Nil {
		return nil, ErrInvalidOriginAccount
	}
	if destinationAccountID == uuid.Nil {
		return nil, ErrInvalidDestinationAccount
	}
	if originAccountID == destinationAccountID {
		return nil, ErrSameAccount
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	switch status {
	case StatusPending, StatusCompleted, StatusFailed, StatusRolledBack:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	return &Transfer{
		ID:                   id,
		OriginAccountID:      originAccountID,
		DestinationAccountID: destinationAccountID,
		Amount:               amount,
		MovementDate:         movementDate,
		Status:               status,
	}, nil
}

// MarkAsCompleted moves a pending transfer to Completed
func (t *Transfer) MarkAsCompleted() error {
	if t.Status != StatusPending {
		return InvalidStateTransitionError{From: t.Status, To: StatusCompleted}
	}
	t.Status = StatusCompleted
	return nil
}

// MarkAsFailed moves a pending transfer to Failed
func (t *Transfer) MarkAsFailed() error {
	if t.Status != StatusPending {
		return InvalidStateTransitionError{From: t.Status, To: StatusFailed}
	}
	t.Status = StatusFailed
	return nil
}

// MarkAsRolledBack moves a failed transfer to RolledBack. Only transfers whose
// compensation succeeded may be rolled back.
func (t *Transfer) MarkAsRolledBack() error {
	if t.Status != StatusFailed {
		return InvalidStateTransitionError{From: t.Status, To: StatusRolledBack}
	}
	t.Status = StatusRolledBack
	return nil
}
