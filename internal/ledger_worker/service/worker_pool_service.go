package service

import (
	"context"
	"log/slog"

	"github.com/panjf2000/ants/v2"

	"github.com/banking-transfer-service/internal/domain/events"
)

// WorkerPoolFeeDebitService bounds concurrent fee debit recording with a
// fixed-size worker pool.
type WorkerPoolFeeDebitService struct {
	baseService FeeDebitService
	pool        *ants.Pool
	logger      *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolFeeDebitService(
	baseService FeeDebitService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolFeeDebitService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolFeeDebitService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
	}, nil
}

// ApplyFeeDebit submits the event to the worker pool and waits for its result
func (s *WorkerPoolFeeDebitService) ApplyFeeDebit(ctx context.Context, event *events.FeeApplied) error {
	s.logger.Debug("Submitting fee debit to worker pool",
		"fee_id", event.FeeID.String(),
	)

	resultChan := make(chan error, 1)

	eventCopy := *event
	err := s.pool.Submit(func() {
		resultChan <- s.baseService.ApplyFeeDebit(ctx, &eventCopy)
		close(resultChan)
	})
	if err != nil {
		s.logger.Error("Failed to submit fee debit to worker pool",
			"fee_id", event.FeeID.String(),
			"error", err,
		)
		return err
	}

	return <-resultChan
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolFeeDebitService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolFeeDebitService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolFeeDebitService) Capacity() int {
	return s.pool.Cap()
}
