// Package saga coordinates multi-step business transactions with
// compensating actions instead of a single atomic commit. Partial
// application is a reachable state; the executor's job is to make it
// distinguishable from full success and full rollback.
package saga

import (
	"context"
	"log/slog"
)

// Step pairs a forward action with its compensation. Compensation may be nil
// for steps that need none (e.g. the final step of a sequence).
type Step struct {
	Name         string
	Action       func(ctx context.Context) error
	Compensation func(ctx context.Context) error
}

// ExecutionReport describes how a step sequence ran. FailedStep is -1 when
// every action committed.
type ExecutionReport struct {
	FailedStep      int
	FailedStepName  string
	ActionErr       error
	CompensationErr error
	Compensated     bool
}

// Committed reports whether all actions succeeded
func (r ExecutionReport) Committed() bool {
	return r.FailedStep < 0
}

// Executor runs an ordered step sequence. Actions run strictly one after
// another; on the first action failure the compensations of every committed
// step run in reverse order. New steps slot into the list without changing
// the control flow.
type Executor struct {
	logger *slog.Logger
}

// NewExecutor creates a step-sequence executor
func NewExecutor(logger *slog.Logger) *Executor {
	return &Executor{logger: logger}
}

// Execute runs the steps in order, compensating on failure. The first
// compensation error aborts the rollback: remaining compensations are not
// attempted, because the sequence is already in a state that needs an
// operator, and further blind writes could make reconciliation harder.
func (e *Executor) Execute(ctx context.Context, steps []Step) ExecutionReport {
	for i, step := range steps {
		if err := step.Action(ctx); err != nil {
			e.logger.Warn("Saga step failed",
				"step", step.Name,
				"step_index", i,
				"error", err,
			)
			report := ExecutionReport{
				FailedStep:     i,
				FailedStepName: step.Name,
				ActionErr:      err,
			}

			if i == 0 {
				// Nothing committed yet, nothing to undo.
				return report
			}

			report.Compensated = true
			for j := i - 1; j >= 0; j-- {
				if steps[j].Compensation == nil {
					continue
				}
				if compErr := steps[j].Compensation(ctx); compErr != nil {
					e.logger.Error("Saga compensation failed",
						"step", steps[j].Name,
						"step_index", j,
						"error", compErr,
					)
					report.Compensated = false
					report.CompensationErr = compErr
					return report
				}
				e.logger.Info("Saga step compensated", "step", steps[j].Name, "step_index", j)
			}
			return report
		}
		e.logger.Debug("Saga step committed", "step", step.Name, "step_index", i)
	}

	return ExecutionReport{FailedStep: -1}
}
