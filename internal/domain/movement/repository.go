package movement

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Repository defines movement persistence operations
type Repository interface {
	Create(ctx context.Context, movement *Movement) error
	WithTx(tx pgx.Tx) Repository
}
