package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/executive-war-room/internal/domain/activity"
	"github.com/executive-war-room/internal/domain/ledger"
)

// ActivityServiceImpl implements the ActivityService interface
type ActivityServiceImpl struct {
	activities activity.Repository
	events     ledger.Repository
	opTimeout  time.Duration
	logger     *slog.Logger
}

// NewActivityService creates a new activity service
func NewActivityService(logger *slog.Logger, activities activity.Repository, events ledger.Repository, opTimeout time.Duration) ActivityService {
	return &ActivityServiceImpl{
		activities: activities,
		events:     events,
		opTimeout:  opTimeout,
		logger:     logger.With("component", "activity_service"),
	}
}

// GetByEventID returns ErrEventNotFound when the event is unknown to the ledger
func (s *ActivityServiceImpl) GetByEventID(ctx context.Context, eventID string, page, perPage int) ([]*activity.Activity, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if _, err := s.events.Get(ctx, eventID); err != nil {
		return nil, 0, ledger.NewStoreError(OpGet, err)
	}

	total, err := s.activities.CountByEventID(ctx, eventID)
	if err != nil {
		s.logger.Error("Failed to count activities", "event_id", eventID, "error", err)
		return nil, 0, ledger.NewStoreError("count_activity", fmt.Errorf("count activities: %w", err))
	}

	offset := (page - 1) * perPage
	activities, err := s.activities.GetByEventID(ctx, eventID, perPage, offset)
	if err != nil {
		s.logger.Error("Failed to get activities", "event_id", eventID, "error", err)
		return nil, 0, ledger.NewStoreError("list_activity", fmt.Errorf("get activities: %w", err))
	}

	return activities, total, nil
}
