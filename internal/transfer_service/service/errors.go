package service

import (
	"errors"
	"fmt"

	"github.com/banking-transfer-service/internal/saga"
)

// ErrDestinationAccountNotFound indicates the destination account number does
// not resolve to a known ledger account
var ErrDestinationAccountNotFound = errors.New("destination account not found")

// TransferFailedError indicates the saga failed but left the accounts
// consistent: either no money moved or the debit was refunded.
type TransferFailedError struct {
	Outcome saga.Outcome
	Message string
	Err     error
}

func (e *TransferFailedError) Error() string {
	return fmt.Sprintf("transfer failed (%s): %s", e.Outcome, e.Message)
}

func (e *TransferFailedError) Unwrap() error {
	return e.Err
}

// ManualReconciliationError indicates the debit committed and neither the
// credit nor the compensating refund went through. An operator has to act;
// the record stays Failed until they do.
type ManualReconciliationError struct {
	Message string
}

func (e *ManualReconciliationError) Error() string {
	return e.Message
}
