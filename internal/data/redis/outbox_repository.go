package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/executive-war-room/internal/domain/outbox"
	"github.com/executive-war-room/internal/domain/shared"
)

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// OutboxRepository implements outbox.Repository over the keys written by
// EventRepository
type OutboxRepository struct {
	client     *redis.Client
	keys       keyspace
	maxRetries int
	logger     *slog.Logger
}

func NewOutboxRepository(logger *slog.Logger, client *redis.Client, keyPrefix string, maxRetries int) *OutboxRepository {
	return &OutboxRepository{
		client:     client,
		keys:       keyspace{prefix: keyPrefix},
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// GetPending returns up to limit pending messages in id order
func (r *OutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	ids, err := r.client.ZRange(ctx, r.keys.outboxPending(), 0, stop).Result()
	if err != nil {
		r.logger.Error("Failed to get pending outbox messages", "error", err)
		return nil, fmt.Errorf("failed to get pending outbox messages: %w", err)
	}

	messages := make([]*outbox.Message, 0, len(ids))
	for _, raw := range ids {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid outbox id %q: %w", raw, err)
		}
		msg, err := r.get(ctx, r.client, id)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (r *OutboxRepository) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	return r.modify(ctx, id, func(msg *outbox.Message) {
		msg.SetStatus(status)
	})
}

func (r *OutboxRepository) IncrementAttempts(ctx context.Context, id int64) error {
	return r.modify(ctx, id, func(msg *outbox.Message) {
		msg.IncrementAttempts()
	})
}

func (r *OutboxRepository) modify(ctx context.Context, id int64, change func(msg *outbox.Message)) error {
	key := r.keys.outboxMessage(id)

	return withRetry(ctx, r.maxRetries, func() error {
		return r.client.Watch(ctx, func(tx *redis.Tx) error {
			msg, err := r.get(ctx, tx, id)
			if err != nil {
				return err
			}
			change(msg)

			data, err := json.Marshal(msg)
			if err != nil {
				return fmt.Errorf("failed to encode outbox message: %w", err)
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, data, 0)
				if msg.Status != shared.OutboxStatusPending {
					pipe.ZRem(ctx, r.keys.outboxPending(), id)
				}
				return nil
			})
			return err
		}, key)
	})
}

func (r *OutboxRepository) get(ctx context.Context, c getter, id int64) (*outbox.Message, error) {
	data, err := c.Get(ctx, r.keys.outboxMessage(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, outbox.ErrMessageNotFound{ID: id}
		}
		r.logger.Error("Failed to get outbox message", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get outbox message: %w", err)
	}

	var msg outbox.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode outbox message %d: %w", id, err)
	}
	return &msg, nil
}
