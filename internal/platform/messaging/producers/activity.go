package producers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/executive-war-room/internal/config"
)

// ActivityProducer publishes ledger activities to the activity topic. Writes
// are synchronous so the outbox only marks a message processed once Kafka
// has acknowledged it.
type ActivityProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// NewActivityProducer creates a new activity producer and ensures the topic exists
func NewActivityProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*ActivityProducer, error) {
	if cfg.ActivityTopic == "" {
		return nil, fmt.Errorf("kafka activity topic is not configured")
	}

	brokers := BrokerList(cfg.Brokers)
	if err := dialTopic(ctx, brokers, cfg.ActivityTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure activity topic %s exists: %w", cfg.ActivityTopic, err)
	}

	writer := &kafka.Writer{
		Addr: kafka.TCP(brokers...),
		// Keyed by event id so one event's activities stay ordered on a partition
		Balancer:     &kafka.Hash{},
		Topic:        cfg.ActivityTopic,
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: cfg.MaxWait,
	}

	return &ActivityProducer{
		logger: logger.With("component", "activity_producer"),
		writer: writer,
		topic:  cfg.ActivityTopic,
	}, nil
}

// Publish writes payload under key with the given headers
func (p *ActivityProducer) Publish(ctx context.Context, key string, payload []byte, headers map[string]string) error {
	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
	}
	for k, v := range headers {
		if v != "" {
			msg.Headers = append(msg.Headers, kafka.Header{Key: k, Value: []byte(v)})
		}
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish activity",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish message to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published activity",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *ActivityProducer) Close() error {
	p.logger.Info("Closing activity producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
