package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/executive-war-room/internal/domain/outbox"
	"github.com/executive-war-room/internal/domain/shared"
	"github.com/executive-war-room/internal/platform/messaging/producers"
	"github.com/executive-war-room/internal/platform/metrics"
)

// ActivityPublisher publishes outbox messages to the activity stream
type ActivityPublisher interface {
	PublishActivity(ctx context.Context, message *outbox.Message) error
}

// ActivityPublisherImpl implements ActivityPublisher on top of a MessagePublisher
type ActivityPublisherImpl struct {
	outboxRepo outbox.Repository
	publisher  producers.MessagePublisher
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewActivityPublisher creates a new publisher
func NewActivityPublisher(
	outboxRepo outbox.Repository,
	publisher producers.MessagePublisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) ActivityPublisher {
	return &ActivityPublisherImpl{
		outboxRepo: outboxRepo,
		publisher:  publisher,
		metrics:    m,
		logger:     logger,
	}
}

// PublishActivity sends the message payload keyed by event id and marks the
// outbox message PROCESSED. An undecodable payload is parked as FAILED_TO_PUBLISH
// straight away since retrying cannot fix it.
func (p *ActivityPublisherImpl) PublishActivity(ctx context.Context, message *outbox.Message) error {
	act, err := message.GetActivity()
	if err != nil {
		p.logger.Error("Failed to unmarshal activity from outbox payload",
			"outbox_id", message.ID, "event_id", message.EventID, "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error", "outbox_id", message.ID, "update_error", updateErr)
		}
		p.metrics.ActivityPublished(metrics.OutcomeFailure)
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	logger := p.logger
	if act.CorrelationID != "" {
		logger = p.logger.With("correlation_id", act.CorrelationID)
	}

	headers := map[string]string{
		producers.HeaderCorrelationID: act.CorrelationID,
		producers.HeaderActivityType:  string(act.Type),
	}
	if err := p.publisher.Publish(ctx, message.EventID, message.Payload, headers); err != nil {
		logger.Error("Failed to publish activity",
			"outbox_id", message.ID, "event_id", message.EventID, "activity_id", act.ID, "error", err,
		)
		p.metrics.ActivityPublished(metrics.OutcomeFailure)
		return fmt.Errorf("failed to publish activity %s: %w", act.ID, err)
	}
	p.metrics.ActivityPublished(metrics.OutcomeSuccess)

	// A failure here republishes the activity on the next tick; the recorder
	// drops the duplicate by activity id
	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED",
			"outbox_id", message.ID, "event_id", message.EventID, "error", err,
		)
		return fmt.Errorf("activity %s published, but failed to mark outbox %d as PROCESSED: %w", act.ID, message.ID, err)
	}

	logger.Info("Activity published and outbox message marked as PROCESSED",
		"outbox_id", message.ID, "event_id", message.EventID, "activity_id", act.ID, "type", act.Type,
	)
	return nil
}
