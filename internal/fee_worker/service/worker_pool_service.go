package service

import (
	"context"
	"log/slog"

	"github.com/panjf2000/ants/v2"

	"github.com/banking-transfer-service/internal/domain/events"
)

// WorkerPoolFeeApplier bounds concurrent fee application with a fixed-size
// worker pool. The caller still observes the per-event result, so the Kafka
// offset is committed only after the pooled worker finishes.
type WorkerPoolFeeApplier struct {
	baseService FeeApplierService
	pool        *ants.Pool
	logger      *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolFeeApplier(
	baseService FeeApplierService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolFeeApplier, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolFeeApplier{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
	}, nil
}

// ApplyFee submits the event to the worker pool and waits for its result
func (s *WorkerPoolFeeApplier) ApplyFee(ctx context.Context, event *events.TransferCompleted) error {
	s.logger.Debug("Submitting fee application to worker pool",
		"transfer_id", event.TransferID.String(),
	)

	resultChan := make(chan error, 1)

	eventCopy := *event
	err := s.pool.Submit(func() {
		resultChan <- s.baseService.ApplyFee(ctx, &eventCopy)
		close(resultChan)
	})
	if err != nil {
		s.logger.Error("Failed to submit fee application to worker pool",
			"transfer_id", event.TransferID.String(),
			"error", err,
		)
		return err
	}

	return <-resultChan
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolFeeApplier) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolFeeApplier) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolFeeApplier) Capacity() int {
	return s.pool.Cap()
}
