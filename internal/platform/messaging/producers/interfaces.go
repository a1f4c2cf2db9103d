package producers

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// Header names attached to published activity messages
const (
	HeaderCorrelationID = "correlation-id"
	HeaderActivityType  = "activity-type"
	HeaderDLQReason     = "dlq-reason"
)

// MessagePublisher publishes pre-encoded messages to a primary topic
type MessagePublisher interface {
	Publish(ctx context.Context, key string, payload []byte, headers map[string]string) error
	Close() error
}

// DeadLetterPublisher handles publishing messages to a Dead Letter Queue
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// KafkaWriter wraps kafka.Writer methods for testing
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
