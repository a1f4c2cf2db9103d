// Package consumer turns activity stream messages into recorded activities.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/executive-war-room/internal/activity_recorder/service"
	"github.com/executive-war-room/internal/domain/activity"
	"github.com/executive-war-room/internal/platform/messaging/producers"
)

// ActivityEventHandler handles activity messages from Kafka
type ActivityEventHandler struct {
	recordingService service.RecordingService
	producer         producers.DeadLetterPublisher
	logger           *slog.Logger
}

// NewActivityEventHandler creates a new handler. producer may be nil when no
// dead letter topic is configured.
func NewActivityEventHandler(
	logger *slog.Logger,
	recordingService service.RecordingService,
	producer producers.DeadLetterPublisher,
) *ActivityEventHandler {
	return &ActivityEventHandler{
		recordingService: recordingService,
		producer:         producer,
		logger:           logger,
	}
}

// HandleMessage records one activity. A nil return commits the offset.
// Messages that can never be recorded are dead-lettered; store failures are
// returned so the message is redelivered.
func (h *ActivityEventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	key := string(msg.Key)

	var a activity.Activity
	if err := json.Unmarshal(msg.Value, &a); err != nil {
		return h.deadLetter(ctx, key, msg.Value, "Failed to unmarshal activity from Kafka message", err)
	}

	if a.CorrelationID == "" {
		a.CorrelationID = header(msg, producers.HeaderCorrelationID)
	}
	logger := h.logger
	if a.CorrelationID != "" {
		logger = h.logger.With("correlation_id", a.CorrelationID)
	}

	logger.Info("Received activity for recording",
		"activity_id", a.ID,
		"event_id", a.EventID,
		"type", a.Type,
	)

	if err := h.recordingService.Record(ctx, &a); err != nil {
		if errors.Is(err, activity.ErrInvalidActivity) {
			return h.deadLetter(ctx, key, msg.Value, "Activity failed validation", err)
		}
		logger.Error("Failed to record activity",
			"activity_id", a.ID,
			"event_id", a.EventID,
			"error", err,
		)
		return fmt.Errorf("recording activity %s failed: %w", a.ID, err)
	}

	return nil
}

func (h *ActivityEventHandler) deadLetter(ctx context.Context, key string, value []byte, reason string, cause error) error {
	h.logger.Error(reason,
		"error", cause,
		"message_key", key,
	)

	if h.producer == nil {
		// Allow Kafka retries
		return fmt.Errorf("%s: %w", reason, cause)
	}

	dlqReason := fmt.Sprintf("%s: %s", reason, cause.Error())
	if dlqErr := h.producer.PublishToDLQ(ctx, key, value, dlqReason); dlqErr != nil {
		h.logger.Error("Failed to publish message to DLQ",
			"dlq_error", dlqErr,
			"original_error", cause,
			"message_key", key,
		)
		return fmt.Errorf("%s: %w", reason, cause)
	}

	h.logger.Info("Successfully published unprocessable message to DLQ", "message_key", key, "reason", dlqReason)
	return nil
}

func header(msg kafka.Message, name string) string {
	for _, h := range msg.Headers {
		if h.Key == name {
			return string(h.Value)
		}
	}
	return ""
}
