package fee

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines fee persistence operations
type Repository interface {
	Create(ctx context.Context, fee *Fee) error
	GetByID(ctx context.Context, id uuid.UUID) (*Fee, error)
	WithTx(tx pgx.Tx) Repository
}
