package saga

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/banking-transfer-service/internal/platform/ledgerapi"
	"github.com/shopspring/decimal"
)

// TransferOrchestrator sequences debit, credit, and compensating credit
// across the ledger. It owns no storage: the caller persists the outcome.
type TransferOrchestrator struct {
	ledger   ledgerapi.Client
	executor *Executor
	logger   *slog.Logger
}

// NewTransferOrchestrator creates an orchestrator over the given ledger client
func NewTransferOrchestrator(ledger ledgerapi.Client, logger *slog.Logger) *TransferOrchestrator {
	return &TransferOrchestrator{
		ledger:   ledger,
		executor: NewExecutor(logger),
		logger:   logger,
	}
}

// ExecuteTransferSaga debits the origin account and credits the destination,
// refunding the origin when the credit fails. The three step keys are derived
// deterministically from baseIdempotencyKey, so a retried saga replays
// against the same keys and the ledger's idempotency guard prevents any
// effect from applying twice.
func (o *TransferOrchestrator) ExecuteTransferSaga(ctx context.Context, destinationAccountNumber int64, amount decimal.Decimal, authToken string, baseIdempotencyKey string) Result {
	debitKey := baseIdempotencyKey + "-debit"
	creditKey := baseIdempotencyKey + "-credit"
	chargebackKey := baseIdempotencyKey + "-chargeback"

	steps := []Step{
		{
			Name: "debit-origin",
			Action: func(ctx context.Context) error {
				return o.ledger.CreateMovement(ctx, nil, amount, ledgerapi.MovementDebit, authToken, debitKey)
			},
			Compensation: func(ctx context.Context) error {
				return o.ledger.CreateMovement(ctx, nil, amount, ledgerapi.MovementCredit, authToken, chargebackKey)
			},
		},
		{
			Name: "credit-destination",
			Action: func(ctx context.Context) error {
				return o.ledger.CreateMovement(ctx, &destinationAccountNumber, amount, ledgerapi.MovementCredit, authToken, creditKey)
			},
		},
	}

	report := o.executor.Execute(ctx, steps)

	if report.Committed() {
		return Success()
	}

	if report.FailedStep == 0 {
		// No side effect committed, no compensation attempted.
		return FailedAtDebit(
			fmt.Sprintf("failed to debit origin account: %v", report.ActionErr),
			report.ActionErr,
		)
	}

	if report.Compensated {
		return FailedWithRollback(
			fmt.Sprintf("failed to credit destination account, transfer rolled back: %v", report.ActionErr),
			report.ActionErr,
		)
	}

	o.logger.Error("Transfer saga compensation exhausted, manual reconciliation required",
		"amount", amount.String(),
		"idempotency_key", baseIdempotencyKey,
		"credit_error", report.ActionErr,
		"chargeback_error", report.CompensationErr,
	)
	return FailedWithoutRollback(
		fmt.Sprintf("critical: could not roll back transfer of %s, manual reconciliation required (credit failed: %v; chargeback failed: %v)",
			amount.String(), report.ActionErr, report.CompensationErr),
		report.ActionErr,
		report.CompensationErr,
	)
}
