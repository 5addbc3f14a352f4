package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/banking-transfer-service/internal/domain/events"
	"github.com/banking-transfer-service/internal/domain/outbox"
	"github.com/banking-transfer-service/internal/domain/transfer"
	"github.com/banking-transfer-service/internal/platform/ledgerapi"
	"github.com/banking-transfer-service/internal/saga"
)

// TxRunner runs a function inside one database transaction. It is satisfied
// by persistence.PostgresDB.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// TransferServiceImpl implements the TransferService interface
type TransferServiceImpl struct {
	ledger       ledgerapi.Client
	orchestrator *saga.TransferOrchestrator
	transferRepo transfer.Repository
	outboxRepo   outbox.Repository
	db           TxRunner
	logger       *slog.Logger
}

// NewTransferService creates a new transfer service
func NewTransferService(
	logger *slog.Logger,
	ledger ledgerapi.Client,
	orchestrator *saga.TransferOrchestrator,
	transferRepo transfer.Repository,
	outboxRepo outbox.Repository,
	db TxRunner,
) TransferService {
	return &TransferServiceImpl{
		ledger:       ledger,
		orchestrator: orchestrator,
		transferRepo: transferRepo,
		outboxRepo:   outboxRepo,
		db:           db,
		logger:       logger,
	}
}

// CreateTransfer resolves the destination account, runs the saga, and writes
// the terminal record. The transfer id doubles as the saga's base idempotency
// key, so the ledger deduplicates every step of a replayed saga.
func (s *TransferServiceImpl) CreateTransfer(ctx context.Context, originAccountID uuid.UUID, destinationAccountNumber int64, amount decimal.Decimal, authToken string) (*transfer.Transfer, error) {
	destinationAccountID, err := s.ledger.ResolveAccountID(ctx, destinationAccountNumber, authToken)
	if err != nil {
		if errors.Is(err, ledgerapi.ErrInvalidAccount) {
			return nil, ErrDestinationAccountNotFound
		}
		s.logger.Error("Failed to resolve destination account",
			"destination_account_number", destinationAccountNumber,
			"error", err,
		)
		return nil, err
	}

	t, err := transfer.NewTransfer(originAccountID, destinationAccountID, amount)
	if err != nil {
		return nil, err
	}

	result := s.orchestrator.ExecuteTransferSaga(ctx, destinationAccountNumber, amount, authToken, t.ID.String())

	if err := s.applyOutcome(t, result); err != nil {
		return nil, err
	}

	if err := s.persistOutcome(ctx, t, result); err != nil {
		return nil, err
	}

	s.logger.Info("Transfer saga finished",
		"transfer_id", t.ID.String(),
		"outcome", string(result.Outcome),
		"status", string(t.Status),
	)

	switch result.Outcome {
	case saga.OutcomeSuccess:
		return t, nil
	case saga.OutcomeFailedWithoutRollback:
		return nil, &ManualReconciliationError{Message: result.Message}
	default:
		return nil, &TransferFailedError{
			Outcome: result.Outcome,
			Message: result.Message,
			Err:     result.StepErr,
		}
	}
}

// applyOutcome maps the saga result onto the record's state machine
func (s *TransferServiceImpl) applyOutcome(t *transfer.Transfer, result saga.Result) error {
	switch result.Outcome {
	case saga.OutcomeSuccess:
		return t.MarkAsCompleted()
	case saga.OutcomeFailedAtDebit, saga.OutcomeFailedWithoutRollback:
		return t.MarkAsFailed()
	case saga.OutcomeFailedWithRollback:
		if err := t.MarkAsFailed(); err != nil {
			return err
		}
		return t.MarkAsRolledBack()
	default:
		return fmt.Errorf("unknown saga outcome %q", result.Outcome)
	}
}

// persistOutcome writes the terminal record, and for a completed transfer the
// outbox message in the same transaction. The event exists if and only if the
// record says Completed.
func (s *TransferServiceImpl) persistOutcome(ctx context.Context, t *transfer.Transfer, result saga.Result) error {
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := s.transferRepo.WithTx(tx).Create(ctx, t); err != nil {
			return err
		}

		if !result.IsSuccess() {
			return nil
		}

		event := &events.TransferCompleted{
			TransferID:           t.ID,
			OriginAccountID:      t.OriginAccountID,
			DestinationAccountID: t.DestinationAccountID,
			Amount:               t.Amount,
			MovementDate:         t.MovementDate,
			IdempotencyKey:       t.ID.String(),
		}
		message, err := outbox.NewMessage(event)
		if err != nil {
			return fmt.Errorf("failed to build outbox message: %w", err)
		}
		return s.outboxRepo.WithTx(tx).Create(ctx, message)
	})
	if err != nil {
		s.logger.Error("Failed to persist transfer outcome",
			"transfer_id", t.ID.String(),
			"status", string(t.Status),
			"error", err,
		)
		return fmt.Errorf("failed to persist transfer outcome: %w", err)
	}

	return nil
}

// GetTransfer retrieves a transfer by its ID. Returns nil if not found
func (s *TransferServiceImpl) GetTransfer(ctx context.Context, id uuid.UUID) (*transfer.Transfer, error) {
	t, err := s.transferRepo.GetByID(ctx, id)
	if err != nil {
		var notFound transfer.ErrTransferNotFound
		if errors.As(err, &notFound) {
			s.logger.Info("Transfer not found", "transfer_id", id.String())
			return nil, nil
		}
		s.logger.Error("Failed to get transfer", "transfer_id", id.String(), "error", err)
		return nil, err
	}
	return t, nil
}
