package transfer

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines transfer record persistence operations
type Repository interface {
	// Create persists the final transfer record. It is called exactly once
	// per saga, after the outcome is known.
	Create(ctx context.Context, transfer *Transfer) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transfer, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrTransferNotFound indicates a missing transfer record
type ErrTransferNotFound struct {
	TransferID uuid.UUID
}

func (e ErrTransferNotFound) Error() string {
	return "transfer not found: " + e.TransferID.String()
}
