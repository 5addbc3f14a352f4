// Package service applies the configured transfer fee exactly once per
// completed transfer and emits the fee.applied event that drives the ledger's
// compensating debit.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/banking-transfer-service/internal/domain/events"
	"github.com/banking-transfer-service/internal/domain/fee"
	"github.com/banking-transfer-service/internal/domain/idempotency"
	"github.com/banking-transfer-service/internal/platform/messaging/producers"
)

// FeeApplierImpl implements the FeeApplierService interface
type FeeApplierImpl struct {
	feeRepo        fee.Repository
	processedStore idempotency.ProcessedStore
	producer       producers.MessagePublisher
	feeAmount      decimal.Decimal
	logger         *slog.Logger
}

// NewFeeApplier creates a new fee applier. feeAmount is validated non-negative
// at startup by the config layer.
func NewFeeApplier(
	logger *slog.Logger,
	feeRepo fee.Repository,
	processedStore idempotency.ProcessedStore,
	producer producers.MessagePublisher,
	feeAmount decimal.Decimal,
) FeeApplierService {
	return &FeeApplierImpl{
		feeRepo:        feeRepo,
		processedStore: processedStore,
		producer:       producer,
		feeAmount:      feeAmount,
		logger:         logger,
	}
}

// ApplyFee charges the configured fee against a completed transfer's origin
// account. The fee key is derived from the transfer's idempotency key, so a
// redelivered event hits the processed check and becomes a no-op. The mark
// happens after the effect: a crash in between redelivers the event, and the
// second run sees the key as unprocessed only if the first never marked it,
// which is why the derived key also guards the downstream ledger debit.
func (s *FeeApplierImpl) ApplyFee(ctx context.Context, event *events.TransferCompleted) error {
	feeKey := event.IdempotencyKey + "-fee"

	processed, err := s.processedStore.WasProcessed(ctx, feeKey)
	if err != nil {
		return fmt.Errorf("failed to check fee idempotency for %s: %w", feeKey, err)
	}
	if processed {
		s.logger.Info("Fee already applied, skipping",
			"transfer_id", event.TransferID.String(),
			"fee_key", feeKey,
		)
		return nil
	}

	// A zero configured fee charges nothing, but the key is still marked so
	// the event is settled and never reprocessed under a later fee amount.
	if s.feeAmount.IsZero() {
		s.logger.Info("Configured fee is zero, marking event settled without a fee record",
			"transfer_id", event.TransferID.String(),
			"fee_key", feeKey,
		)
		return s.markProcessed(ctx, feeKey)
	}

	f, err := fee.NewFee(event.OriginAccountID, s.feeAmount)
	if err != nil {
		return fmt.Errorf("failed to build fee for transfer %s: %w", event.TransferID.String(), err)
	}

	if err := s.feeRepo.Create(ctx, f); err != nil {
		return fmt.Errorf("failed to persist fee for transfer %s: %w", event.TransferID.String(), err)
	}

	feeApplied := &events.FeeApplied{
		FeeID:             f.ID,
		CheckingAccountID: f.CheckingAccountID,
		Amount:            f.Amount,
		MovementDate:      f.MovementDate,
		IdempotencyKey:    feeKey,
	}
	if err := s.producer.Publish(ctx, feeKey, feeApplied); err != nil {
		return fmt.Errorf("failed to publish fee applied event for transfer %s: %w", event.TransferID.String(), err)
	}

	if err := s.markProcessed(ctx, feeKey); err != nil {
		return err
	}

	s.logger.Info("Fee applied",
		"transfer_id", event.TransferID.String(),
		"fee_id", f.ID.String(),
		"checking_account_id", f.CheckingAccountID.String(),
		"amount", f.Amount.String(),
		"fee_key", feeKey,
	)
	return nil
}

func (s *FeeApplierImpl) markProcessed(ctx context.Context, feeKey string) error {
	if err := s.processedStore.MarkProcessed(ctx, feeKey); err != nil {
		return fmt.Errorf("failed to mark fee key %s processed: %w", feeKey, err)
	}
	return nil
}
