package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/banking-transfer-service/internal/domain/movement"
	"github.com/banking-transfer-service/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// MovementRepository implements the movement.Repository interface for PostgreSQL
type MovementRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewMovementRepository creates a new PostgreSQL movement repository
func NewMovementRepository(logger *slog.Logger, db *persistence.PostgresDB) movement.Repository {
	return &MovementRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *MovementRepository) WithTx(tx pgx.Tx) movement.Repository {
	return &MovementRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create appends a movement record
func (r *MovementRepository) Create(ctx context.Context, m *movement.Movement) error {
	query := `
		INSERT INTO movements (id, account_id, type, amount, movement_date)
		VALUES ($1, $2, $3, $4::numeric, $5)
	`

	_, err := r.querier.Exec(ctx, query,
		m.ID,
		m.AccountID,
		string(m.Type),
		m.Amount.String(),
		m.MovementDate,
	)
	if err != nil {
		r.logger.Error("Failed to create movement record", "movement_id", m.ID.String(), "error", err)
		return fmt.Errorf("failed to create movement record: %w", err)
	}

	return nil
}
