// Package postgres provides PostgreSQL implementations of the domain
// repositories. It handles all database operations while maintaining
// transaction safety and proper error handling for the transfer service.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/banking-transfer-service/internal/domain/transfer"
	"github.com/banking-transfer-service/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// TransferRepository implements the transfer.Repository interface for PostgreSQL
type TransferRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewTransferRepository creates a new PostgreSQL transfer repository
func NewTransferRepository(logger *slog.Logger, db *persistence.PostgresDB) transfer.Repository {
	return &TransferRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing the transfer
// record and its outbox message to be written atomically.
func (r *TransferRepository) WithTx(tx pgx.Tx) transfer.Repository {
	return &TransferRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores the final transfer record
func (r *TransferRepository) Create(ctx context.Context, t *transfer.Transfer) error {
	query := `
		INSERT INTO transfers (id, origin_account_id, destination_account_id, amount, movement_date, status)
		VALUES ($1, $2, $3, $4::numeric, $5, $6)
	`

	_, err := r.querier.Exec(ctx, query,
		t.ID,
		t.OriginAccountID,
		t.DestinationAccountID,
		t.Amount.String(),
		t.MovementDate,
		t.Status,
	)
	if err != nil {
		r.logger.Error("Failed to create transfer record", "transfer_id", t.ID.String(), "error", err)
		return fmt.Errorf("failed to create transfer record: %w", err)
	}

	return nil
}

// GetByID retrieves a transfer by its ID. Rows are rebuilt through the
// domain reconstruction factory so invariants are re-checked on load.
func (r *TransferRepository) GetByID(ctx context.Context, id uuid.UUID) (*transfer.Transfer, error) {
	query := `
		SELECT id, origin_account_id, destination_account_id, amount::text, movement_date, status
		FROM transfers
		WHERE id = $1
	`

	var (
		transferID    uuid.UUID
		originID      uuid.UUID
		destinationID uuid.UUID
		amountText    string
		movementDate  time.Time
		status        string
	)
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&transferID,
		&originID,
		&destinationID,
		&amountText,
		&movementDate,
		&status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transfer.ErrTransferNotFound{TransferID: id}
		}
		r.logger.Error("Failed to get transfer", "transfer_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get transfer: %w", err)
	}

	amount, err := decimal.NewFromString(amountText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored transfer amount %q: %w", amountText, err)
	}

	t, err := transfer.Reconstruct(transferID, originID, destinationID, amount, movementDate, transfer.Status(status))
	if err != nil {
		r.logger.Error("Stored transfer violates invariants", "transfer_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to reconstruct transfer %s: %w", id.String(), err)
	}

	return t, nil
}
