package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/banking-transfer-service/internal/domain/idempotency"
	"github.com/banking-transfer-service/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// IdempotencyRepository implements the request-level idempotency.Store for
// PostgreSQL. Mutual exclusion between concurrent duplicates relies on the
// primary key of idempotency_keys and INSERT ... ON CONFLICT DO NOTHING.
type IdempotencyRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewIdempotencyRepository creates a new PostgreSQL idempotency store
func NewIdempotencyRepository(logger *slog.Logger, db *persistence.PostgresDB) idempotency.Store {
	return &IdempotencyRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// Reserve claims the key with an atomic insert-if-absent. Exactly one of any
// set of concurrent callers gets the claim; the rest see the existing record.
func (r *IdempotencyRepository) Reserve(ctx context.Context, key string) (bool, *idempotency.Record, error) {
	insert := `
		INSERT INTO idempotency_keys (key, status, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO NOTHING
	`

	tag, err := r.querier.Exec(ctx, insert, key, idempotency.StatusInProgress)
	if err != nil {
		r.logger.Error("Failed to reserve idempotency key", "key", key, "error", err)
		return false, nil, fmt.Errorf("failed to reserve idempotency key: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil, nil
	}

	record, err := r.Get(ctx, key)
	if err != nil {
		return false, nil, err
	}
	if record == nil {
		// The holder released between our insert and read. Treat it as a
		// conflict; the caller retries rather than racing for the claim here.
		return false, nil, nil
	}

	return false, record, nil
}

// Complete stores the cached response pair and finalizes the reservation
func (r *IdempotencyRepository) Complete(ctx context.Context, key string, responseStatus int, responseBody []byte) error {
	query := `
		UPDATE idempotency_keys
		SET status = $2, response_status = $3, response_body = $4, completed_at = NOW()
		WHERE key = $1 AND status = $5
	`

	tag, err := r.querier.Exec(ctx, query, key, idempotency.StatusCompleted, responseStatus, responseBody, idempotency.StatusInProgress)
	if err != nil {
		r.logger.Error("Failed to complete idempotency key", "key", key, "error", err)
		return fmt.Errorf("failed to complete idempotency key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("idempotency key %q is not reserved", key)
	}

	return nil
}

// Release drops an unfinished reservation so a later retry can run the
// effect again. Completed records are never released.
func (r *IdempotencyRepository) Release(ctx context.Context, key string) error {
	query := `DELETE FROM idempotency_keys WHERE key = $1 AND status = $2`

	_, err := r.querier.Exec(ctx, query, key, idempotency.StatusInProgress)
	if err != nil {
		r.logger.Error("Failed to release idempotency key", "key", key, "error", err)
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}

	return nil
}

// Get returns the record for the key, or nil when absent
func (r *IdempotencyRepository) Get(ctx context.Context, key string) (*idempotency.Record, error) {
	query := `
		SELECT key, status, COALESCE(response_status, 0), response_body, created_at, completed_at
		FROM idempotency_keys
		WHERE key = $1
	`

	var record idempotency.Record
	err := r.querier.QueryRow(ctx, query, key).Scan(
		&record.Key,
		&record.Status,
		&record.ResponseStatus,
		&record.ResponseBody,
		&record.CreatedAt,
		&record.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get idempotency key", "key", key, "error", err)
		return nil, fmt.Errorf("failed to get idempotency key: %w", err)
	}

	return &record, nil
}

// ProcessedEventRepository implements the event-level idempotency.ProcessedStore
// for PostgreSQL. Marking is append-only; a key once marked stays marked.
type ProcessedEventRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewProcessedEventRepository creates a new PostgreSQL processed-event store
func NewProcessedEventRepository(logger *slog.Logger, db *persistence.PostgresDB) idempotency.ProcessedStore {
	return &ProcessedEventRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WasProcessed reports whether the event key was already marked
func (r *ProcessedEventRepository) WasProcessed(ctx context.Context, key string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM processed_events WHERE key = $1)`

	var processed bool
	if err := r.querier.QueryRow(ctx, query, key).Scan(&processed); err != nil {
		r.logger.Error("Failed to check processed event", "key", key, "error", err)
		return false, fmt.Errorf("failed to check processed event: %w", err)
	}

	return processed, nil
}

// MarkProcessed records the event key. Marking the same key twice is a no-op
// so a crash after a redelivered effect does not fail the consumer.
func (r *ProcessedEventRepository) MarkProcessed(ctx context.Context, key string) error {
	query := `
		INSERT INTO processed_events (key, processed_at)
		VALUES ($1, NOW())
		ON CONFLICT (key) DO NOTHING
	`

	if _, err := r.querier.Exec(ctx, query, key); err != nil {
		r.logger.Error("Failed to mark event processed", "key", key, "error", err)
		return fmt.Errorf("failed to mark event processed: %w", err)
	}

	return nil
}
