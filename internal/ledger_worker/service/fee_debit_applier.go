// Package service records the ledger-side debit for applied fees. It is the
// last hop of the idempotent fee chain: redelivered fee.applied events must
// yield at most one movement per key.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/banking-transfer-service/internal/domain/events"
	"github.com/banking-transfer-service/internal/domain/idempotency"
	"github.com/banking-transfer-service/internal/domain/movement"
)

// FeeDebitApplierImpl implements the FeeDebitService interface
type FeeDebitApplierImpl struct {
	movementRepo   movement.Repository
	processedStore idempotency.ProcessedStore
	logger         *slog.Logger
}

// NewFeeDebitApplier creates a new fee debit applier
func NewFeeDebitApplier(
	logger *slog.Logger,
	movementRepo movement.Repository,
	processedStore idempotency.ProcessedStore,
) FeeDebitService {
	return &FeeDebitApplierImpl{
		movementRepo:   movementRepo,
		processedStore: processedStore,
		logger:         logger,
	}
}

// ApplyFeeDebit records a debit movement for the fee's checking account,
// keyed by the event's idempotency key. A redelivered event hits the
// processed check and becomes a no-op.
func (s *FeeDebitApplierImpl) ApplyFeeDebit(ctx context.Context, event *events.FeeApplied) error {
	processed, err := s.processedStore.WasProcessed(ctx, event.IdempotencyKey)
	if err != nil {
		return fmt.Errorf("failed to check fee debit idempotency for %s: %w", event.IdempotencyKey, err)
	}
	if processed {
		s.logger.Info("Fee debit already recorded, skipping",
			"fee_id", event.FeeID.String(),
			"idempotency_key", event.IdempotencyKey,
		)
		return nil
	}

	m, err := movement.NewMovement(event.CheckingAccountID, movement.TypeDebit, event.Amount)
	if err != nil {
		return fmt.Errorf("failed to build movement for fee %s: %w", event.FeeID.String(), err)
	}

	if err := s.movementRepo.Create(ctx, m); err != nil {
		return fmt.Errorf("failed to persist movement for fee %s: %w", event.FeeID.String(), err)
	}

	if err := s.processedStore.MarkProcessed(ctx, event.IdempotencyKey); err != nil {
		return fmt.Errorf("failed to mark fee debit key %s processed: %w", event.IdempotencyKey, err)
	}

	s.logger.Info("Fee debit recorded",
		"fee_id", event.FeeID.String(),
		"movement_id", m.ID.String(),
		"checking_account_id", m.AccountID.String(),
		"amount", m.Amount.String(),
		"idempotency_key", event.IdempotencyKey,
	)
	return nil
}
