// Package service records ledger activities consumed from the activity stream.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/executive-war-room/internal/domain/activity"
	"github.com/executive-war-room/internal/platform/metrics"
)

// RecordingServiceImpl writes activities to the activity repository. Delivery
// is at-least-once, so an activity already on record counts as recorded.
type RecordingServiceImpl struct {
	repo      activity.Repository
	metrics   *metrics.Metrics
	logger    *slog.Logger
	opTimeout time.Duration
}

func NewRecordingService(
	logger *slog.Logger,
	repo activity.Repository,
	m *metrics.Metrics,
	opTimeout time.Duration,
) *RecordingServiceImpl {
	return &RecordingServiceImpl{
		repo:      repo,
		metrics:   m,
		logger:    logger,
		opTimeout: opTimeout,
	}
}

func (s *RecordingServiceImpl) Record(ctx context.Context, a *activity.Activity) error {
	logger := s.logger
	if a.CorrelationID != "" {
		logger = s.logger.With("correlation_id", a.CorrelationID)
	}

	if err := a.Validate(); err != nil {
		logger.Warn("Rejecting invalid activity", "activity_id", a.ID, "event_id", a.EventID, "error", err)
		s.metrics.ActivityRecorded(metrics.OutcomeFailure)
		return err
	}

	if s.opTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opTimeout)
		defer cancel()
	}

	err := s.repo.Create(ctx, a)
	switch {
	case err == nil:
		s.metrics.ActivityRecorded(metrics.OutcomeSuccess)
		logger.Info("Activity recorded",
			"activity_id", a.ID,
			"event_id", a.EventID,
			"type", a.Type,
		)
		return nil
	case errors.Is(err, activity.ErrDuplicateActivity{}):
		s.metrics.ActivityRecorded(metrics.OutcomeNoop)
		logger.Info("Activity already recorded, skipping", "activity_id", a.ID, "event_id", a.EventID)
		return nil
	default:
		s.metrics.ActivityRecorded(metrics.OutcomeFailure)
		logger.Error("Failed to record activity", "activity_id", a.ID, "event_id", a.EventID, "error", err)
		return fmt.Errorf("recording activity %s failed: %w", a.ID, err)
	}
}
