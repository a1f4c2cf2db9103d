package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/executive-war-room/internal/domain/activity"
	"github.com/executive-war-room/internal/domain/ledger"
	"github.com/executive-war-room/internal/domain/outbox"
)

// EventRepository implements ledger.Repository for Redis
type EventRepository struct {
	client     *redis.Client
	keys       keyspace
	maxRetries int
	streamed   bool // queue activities on the outbox
	logger     *slog.Logger
}

// NewEventRepository creates a Redis event store. When streamed is set every
// activity is queued on the outbox under keyPrefix.
func NewEventRepository(logger *slog.Logger, client *redis.Client, keyPrefix string, maxRetries int, streamed bool) *EventRepository {
	return &EventRepository{
		client:     client,
		keys:       keyspace{prefix: keyPrefix},
		maxRetries: maxRetries,
		streamed:   streamed,
		logger:     logger,
	}
}

func (r *EventRepository) Create(ctx context.Context, e *ledger.Event, act *activity.Activity) error {
	if err := e.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	key := r.keys.event(e.ID)

	return withRetry(ctx, r.maxRetries, func() error {
		return r.client.Watch(ctx, func(tx *redis.Tx) error {
			exists, err := tx.Exists(ctx, key).Result()
			if err != nil {
				return fmt.Errorf("failed to check event: %w", err)
			}
			if exists > 0 {
				return ledger.ErrDuplicateEvent{EventID: e.ID}
			}

			msg, err := r.prepareMessage(ctx, tx, act)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, data, 0)
				pipe.ZAdd(ctx, r.keys.eventIndex(), redis.Z{Score: 0, Member: e.ID})
				return r.queueMessage(ctx, pipe, msg)
			})
			if err != nil && !errors.Is(err, redis.TxFailedErr) {
				r.logger.Error("Failed to create event", "event_id", e.ID, "error", err)
				return fmt.Errorf("failed to create event: %w", err)
			}
			return err
		}, key)
	})
}

func (r *EventRepository) Get(ctx context.Context, id string) (*ledger.Event, error) {
	data, err := r.client.Get(ctx, r.keys.event(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ledger.ErrEventNotFound{EventID: id}
		}
		r.logger.Error("Failed to get event", "event_id", id, "error", err)
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return decodeEvent(data)
}

// List reads every indexed event and filters in process. Members of the
// index share one score, so ZRANGE returns them ordered by id.
func (r *EventRepository) List(ctx context.Context, f ledger.Filter) ([]*ledger.Event, error) {
	ids, err := r.client.ZRange(ctx, r.keys.eventIndex(), 0, -1).Result()
	if err != nil {
		r.logger.Error("Failed to list event ids", "error", err)
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	events := make([]*ledger.Event, 0, len(ids))
	if len(ids) == 0 {
		return events, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.keys.event(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		r.logger.Error("Failed to load events", "error", err)
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Indexed but deleted out of band
			r.logger.Warn("Event index entry without value", "event_id", ids[i])
			continue
		}
		e, err := decodeEvent([]byte(raw))
		if err != nil {
			return nil, err
		}
		if f.Matches(e) {
			events = append(events, e)
		}
	}

	ledger.SortByID(events)
	return events, nil
}

// Update applies mutate inside a WATCH on the event key and retries when
// another writer commits first
func (r *EventRepository) Update(ctx context.Context, id string, mutate ledger.Mutation) (*ledger.Event, error) {
	key := r.keys.event(id)
	var updated *ledger.Event

	err := withRetry(ctx, r.maxRetries, func() error {
		return r.client.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					return ledger.ErrEventNotFound{EventID: id}
				}
				return fmt.Errorf("failed to get event: %w", err)
			}
			current, err := decodeEvent(data)
			if err != nil {
				return err
			}

			act, err := mutate(current)
			if err != nil {
				return err
			}
			if act == nil {
				updated = current
				return nil
			}
			if err := current.Validate(); err != nil {
				return err
			}

			next, err := json.Marshal(current)
			if err != nil {
				return fmt.Errorf("failed to encode event: %w", err)
			}
			msg, err := r.prepareMessage(ctx, tx, act)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, next, 0)
				return r.queueMessage(ctx, pipe, msg)
			})
			if err != nil {
				if !errors.Is(err, redis.TxFailedErr) {
					r.logger.Error("Failed to update event", "event_id", id, "error", err)
					return fmt.Errorf("failed to update event: %w", err)
				}
				return err
			}
			updated = current
			return nil
		}, key)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// prepareMessage reserves an outbox id. Ids burnt by a failed transaction
// leave harmless gaps.
func (r *EventRepository) prepareMessage(ctx context.Context, tx *redis.Tx, act *activity.Activity) (*outbox.Message, error) {
	if !r.streamed || act == nil {
		return nil, nil
	}
	msg, err := outbox.NewMessage(act)
	if err != nil {
		return nil, fmt.Errorf("failed to encode activity: %w", err)
	}
	msg.ID, err = tx.Incr(ctx, r.keys.outboxSeq()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to reserve outbox id: %w", err)
	}
	return msg, nil
}

func (r *EventRepository) queueMessage(ctx context.Context, pipe redis.Pipeliner, msg *outbox.Message) error {
	if msg == nil {
		return nil
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode outbox message: %w", err)
	}
	pipe.Set(ctx, r.keys.outboxMessage(msg.ID), data, 0)
	pipe.ZAdd(ctx, r.keys.outboxPending(), redis.Z{Score: float64(msg.ID), Member: msg.ID})
	return nil
}

func decodeEvent(data []byte) (*ledger.Event, error) {
	var e ledger.Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}
	if e.Receipts == nil {
		e.Receipts = []ledger.Receipt{}
	}
	return &e, nil
}
