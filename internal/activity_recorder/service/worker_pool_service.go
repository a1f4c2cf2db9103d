package service

import (
	"context"
	"log/slog"

	"github.com/executive-war-room/internal/domain/activity"
	"github.com/panjf2000/ants/v2"
)

// WorkerPoolRecordingService implements the RecordingService interface by
// running the wrapped service on a bounded ants pool
type WorkerPoolRecordingService struct {
	baseService RecordingService
	pool        *ants.Pool
	logger      *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolRecordingService(
	baseService RecordingService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolRecordingService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolRecordingService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
	}, nil
}

// Record submits the activity to the worker pool and waits for the result,
// or for ctx to end
func (s *WorkerPoolRecordingService) Record(ctx context.Context, a *activity.Activity) error {
	logger := s.logger
	if a.CorrelationID != "" {
		logger = s.logger.With("correlation_id", a.CorrelationID)
	}

	logger.Debug("Submitting activity to worker pool",
		"activity_id", a.ID,
		"event_id", a.EventID,
	)

	// Buffered so the worker never blocks when the caller has gone away
	resultChan := make(chan error, 1)

	// Create a copy of the activity to avoid data races
	activityCopy := *a

	err := s.pool.Submit(func() {
		resultChan <- s.baseService.Record(ctx, &activityCopy)
	})
	if err != nil {
		logger.Error("Failed to submit activity to worker pool",
			"activity_id", a.ID,
			"error", err,
		)
		return err
	}

	select {
	case err := <-resultChan:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolRecordingService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolRecordingService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolRecordingService) Capacity() int {
	return s.pool.Cap()
}
