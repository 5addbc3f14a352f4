package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/banking-transfer-service/internal/domain/transfer"
)

// TransferService defines the interface for transfer operations
type TransferService interface {
	// CreateTransfer runs the whole transfer saga and persists its outcome.
	// Returns the terminal transfer record on success; failures come back as
	// TransferFailedError or ManualReconciliationError so callers can
	// distinguish a clean failure from one needing an operator.
	CreateTransfer(ctx context.Context, originAccountID uuid.UUID, destinationAccountNumber int64, amount decimal.Decimal, authToken string) (*transfer.Transfer, error)

	// GetTransfer retrieves a transfer record by its ID
	// Returns nil if the transfer is not found
	GetTransfer(ctx context.Context, id uuid.UUID) (*transfer.Transfer, error)
}
