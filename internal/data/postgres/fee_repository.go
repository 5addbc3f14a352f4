package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/banking-transfer-service/internal/domain/fee"
	"github.com/banking-transfer-service/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ErrFeeNotFound indicates a missing fee record
var ErrFeeNotFound = errors.New("fee not found")

// FeeRepository implements the fee.Repository interface for PostgreSQL
type FeeRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewFeeRepository creates a new PostgreSQL fee repository
func NewFeeRepository(logger *slog.Logger, db *persistence.PostgresDB) fee.Repository {
	return &FeeRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *FeeRepository) WithTx(tx pgx.Tx) fee.Repository {
	return &FeeRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a fee record
func (r *FeeRepository) Create(ctx context.Context, f *fee.Fee) error {
	query := `
		INSERT INTO fees (id, checking_account_id, amount, movement_date)
		VALUES ($1, $2, $3::numeric, $4)
	`

	_, err := r.querier.Exec(ctx, query,
		f.ID,
		f.CheckingAccountID,
		f.Amount.String(),
		f.MovementDate,
	)
	if err != nil {
		r.logger.Error("Failed to create fee record", "fee_id", f.ID.String(), "error", err)
		return fmt.Errorf("failed to create fee record: %w", err)
	}

	return nil
}

// GetByID retrieves a fee by its ID
func (r *FeeRepository) GetByID(ctx context.Context, id uuid.UUID) (*fee.Fee, error) {
	query := `
		SELECT id, checking_account_id, amount::text, movement_date
		FROM fees
		WHERE id = $1
	`

	var (
		f            fee.Fee
		amountText   string
		movementDate time.Time
	)
	err := r.querier.QueryRow(ctx, query, id).Scan(&f.ID, &f.CheckingAccountID, &amountText, &movementDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFeeNotFound
		}
		r.logger.Error("Failed to get fee", "fee_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get fee: %w", err)
	}

	amount, err := decimal.NewFromString(amountText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored fee amount %q: %w", amountText, err)
	}
	f.Amount = amount
	f.MovementDate = movementDate

	return &f, nil
}
