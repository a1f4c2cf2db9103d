// Package components assembles the activity recorder's processing pipeline.
package components

import (
	"log/slog"

	"github.com/executive-war-room/internal/activity_recorder/service"
	"github.com/executive-war-room/internal/config"
	"github.com/executive-war-room/internal/domain/activity"
	"github.com/executive-war-room/internal/platform/metrics"
)

// CreateRecordingService creates the RecordingService used by the stream
// handler: the store-backed service behind an ants worker pool.
func CreateRecordingService(
	activityRepo activity.Repository,
	m *metrics.Metrics,
	logger *slog.Logger,
	cfg *config.Config,
) service.RecordingService {
	baseService := service.NewRecordingService(
		logger.With("component", "recording_service"),
		activityRepo,
		m,
		cfg.MongoDB.Timeout,
	)

	workerPoolService, err := service.NewWorkerPoolRecordingService(
		baseService,
		service.WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		logger.With("component", "worker_pool"),
	)
	if err != nil {
		logger.Error("Failed to create worker pool service, falling back to base service", "error", err)
		return baseService
	}

	logger.Info("Created worker pool recording service", "pool_size", cfg.WorkerPool.Size)
	return workerPoolService
}
