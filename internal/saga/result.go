package saga

// Outcome classifies how a saga execution ended
type Outcome string

const (
	// OutcomeSuccess means every step committed
	OutcomeSuccess Outcome = "SUCCESS"
	// OutcomeFailedAtDebit means the first step failed before any side
	// effect committed; no compensation was needed
	OutcomeFailedAtDebit Outcome = "FAILED_AT_DEBIT"
	// OutcomeFailedWithRollback means a later step failed and every
	// compensation succeeded; money is back where it started
	OutcomeFailedWithRollback Outcome = "FAILED_WITH_ROLLBACK"
	// OutcomeFailedWithoutRollback means compensation itself failed; real
	// money moved and was not reconciled - manual intervention is required
	OutcomeFailedWithoutRollback Outcome = "FAILED_WITHOUT_ROLLBACK"
)

// Result is the immutable outcome of one saga execution. The caller uses it
// to decide the transfer record's terminal state.
type Result struct {
	Outcome Outcome
	Message string

	// StepErr is the error of the step that failed, if any
	StepErr error
	// CompensationErr is set only for OutcomeFailedWithoutRollback
	CompensationErr error
}

// IsSuccess reports whether every step committed
func (r Result) IsSuccess() bool {
	return r.Outcome == OutcomeSuccess
}

// RequiresManualReconciliation reports whether compensation was exhausted
// and an operator has to act
func (r Result) RequiresManualReconciliation() bool {
	return r.Outcome == OutcomeFailedWithoutRollback
}

// Success builds a successful result
func Success() Result {
	return Result{Outcome: OutcomeSuccess}
}

// FailedAtDebit builds a result for a failure before any committed effect
func FailedAtDebit(message string, stepErr error) Result {
	return Result{Outcome: OutcomeFailedAtDebit, Message: message, StepErr: stepErr}
}

// FailedWithRollback builds a result for a compensated failure
func FailedWithRollback(message string, stepErr error) Result {
	return Result{Outcome: OutcomeFailedWithRollback, Message: message, StepErr: stepErr}
}

// FailedWithoutRollback builds a result for an uncompensated failure
func FailedWithoutRollback(message string, stepErr, compensationErr error) Result {
	return Result{
		Outcome:         OutcomeFailedWithoutRollback,
		Message:         message,
		StepErr:         stepErr,
		CompensationErr: compensationErr,
	}
}
