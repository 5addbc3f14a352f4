package saga

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banking-transfer-service/internal/platform/ledgerapi"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// movementCall records one CreateMovement invocation for assertions
type movementCall struct {
	accountNumber  *int64
	amount         decimal.Decimal
	movementType   ledgerapi.MovementType
	idempotencyKey string
}

// fakeLedger scripts per-key outcomes so each saga path can be forced
type fakeLedger struct {
	calls      []movementCall
	errorByKey map[string]error
	resolveID  uuid.UUID
	resolveErr error
}

func (f *fakeLedger) CreateMovement(_ context.Context, accountNumber *int64, amount decimal.Decimal, movementType ledgerapi.MovementType, _ string, idempotencyKey string) error {
	f.calls = append(f.calls, movementCall{
		accountNumber:  accountNumber,
		amount:         amount,
		movementType:   movementType,
		idempotencyKey: idempotencyKey,
	})
	if f.errorByKey == nil {
		return nil
	}
	return f.errorByKey[idempotencyKey]
}

func (f *fakeLedger) ResolveAccountID(_ context.Context, _ int64, _ string) (uuid.UUID, error) {
	return f.resolveID, f.resolveErr
}

func TestExecuteTransferSaga_Success(t *testing.T) {
	ledger := &fakeLedger{}
	orchestrator := NewTransferOrchestrator(ledger, newTestLogger())

	amount := decimal.NewFromInt(100)
	result := orchestrator.ExecuteTransferSaga(context.Background(), 42, amount, "token", "base")

	assert.Equal(t, OutcomeSuccess, result.Outcome)
	assert.True(t, result.IsSuccess())
	assert.False(t, result.RequiresManualReconciliation())

	require.Len(t, ledger.calls, 2)

	debit := ledger.calls[0]
	assert.Nil(t, debit.accountNumber)
	assert.Equal(t, ledgerapi.MovementDebit, debit.movementType)
	assert.Equal(t, "base-debit", debit.idempotencyKey)
	assert.True(t, debit.amount.Equal(amount))

	credit := ledger.calls[1]
	require.NotNil(t, credit.accountNumber)
	assert.Equal(t, int64(42), *credit.accountNumber)
	assert.Equal(t, ledgerapi.MovementCredit, credit.movementType)
	assert.Equal(t, "base-credit", credit.idempotencyKey)
}

func TestExecuteTransferSaga_FailedAtDebit(t *testing.T) {
	debitErr := errors.New("insufficient funds")
	ledger := &fakeLedger{errorByKey: map[string]error{"base-debit": debitErr}}
	orchestrator := NewTransferOrchestrator(ledger, newTestLogger())

	result := orchestrator.ExecuteTransferSaga(context.Background(), 42, decimal.NewFromInt(100), "token", "base")

	assert.Equal(t, OutcomeFailedAtDebit, result.Outcome)
	assert.ErrorIs(t, result.StepErr, debitErr)
	assert.NoError(t, result.CompensationErr)

	// No credit and no compensation after a debit failure.
	require.Len(t, ledger.calls, 1)
	assert.Equal(t, "base-debit", ledger.calls[0].idempotencyKey)
}

func TestExecuteTransferSaga_FailedWithRollback(t *testing.T) {
	creditErr := errors.New("destination account inactive")
	ledger := &fakeLedger{errorByKey: map[string]error{"base-credit": creditErr}}
	orchestrator := NewTransferOrchestrator(ledger, newTestLogger())

	amount := decimal.NewFromInt(100)
	result := orchestrator.ExecuteTransferSaga(context.Background(), 42, amount, "token", "base")

	assert.Equal(t, OutcomeFailedWithRollback, result.Outcome)
	assert.ErrorIs(t, result.StepErr, creditErr)
	assert.Contains(t, result.Message, "rolled back")

	// Debit, credit attempt, then compensating credit back to the origin.
	require.Len(t, ledger.calls, 3)

	chargeback := ledger.calls[2]
	assert.Nil(t, chargeback.accountNumber)
	assert.Equal(t, ledgerapi.MovementCredit, chargeback.movementType)
	assert.Equal(t, "base-chargeback", chargeback.idempotencyKey)
	assert.True(t, chargeback.amount.Equal(amount))
}

func TestExecuteTransferSaga_FailedWithoutRollback(t *testing.T) {
	creditErr := errors.New("destination unreachable")
	chargebackErr := errors.New("ledger down")
	ledger := &fakeLedger{errorByKey: map[string]error{
		"base-credit":     creditErr,
		"base-chargeback": chargebackErr,
	}}
	orchestrator := NewTransferOrchestrator(ledger, newTestLogger())

	amount := decimal.RequireFromString("99.95")
	result := orchestrator.ExecuteTransferSaga(context.Background(), 42, amount, "token", "base")

	assert.Equal(t, OutcomeFailedWithoutRollback, result.Outcome)
	assert.True(t, result.RequiresManualReconciliation())
	assert.ErrorIs(t, result.StepErr, creditErr)
	assert.ErrorIs(t, result.CompensationErr, chargebackErr)

	// The message carries everything an operator needs.
	assert.Contains(t, result.Message, "99.95")
	assert.Contains(t, result.Message, creditErr.Error())
	assert.Contains(t, result.Message, chargebackErr.Error())
	assert.Contains(t, result.Message, "manual reconciliation")
}

func TestExecuteTransferSaga_DeterministicKeys(t *testing.T) {
	ledger := &fakeLedger{}
	orchestrator := NewTransferOrchestrator(ledger, newTestLogger())

	// The same base key replays against the same derived keys.
	for i := 0; i < 2; i++ {
		result := orchestrator.ExecuteTransferSaga(context.Background(), 7, decimal.NewFromInt(5), "token", "transfer-123")
		require.True(t, result.IsSuccess())
	}

	require.Len(t, ledger.calls, 4)
	assert.Equal(t, ledger.calls[0].idempotencyKey, ledger.calls[2].idempotencyKey)
	assert.Equal(t, ledger.calls[1].idempotencyKey, ledger.calls[3].idempotencyKey)
}
