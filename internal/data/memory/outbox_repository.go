package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/executive-war-room/internal/domain/outbox"
	"github.com/executive-war-room/internal/domain/shared"
)

// OutboxRepository is an in-process outbox.Repository. Messages are dropped
// once they leave PENDING, so it only holds the publishing backlog.
type OutboxRepository struct {
	mu       sync.Mutex
	seq      int64
	messages map[int64]*outbox.Message
}

func NewOutboxRepository() *OutboxRepository {
	return &OutboxRepository{messages: make(map[int64]*outbox.Message)}
}

func (r *OutboxRepository) add(msg *outbox.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	stored := *msg
	stored.ID = r.seq
	r.messages[stored.ID] = &stored
}

func (r *OutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	pending := make([]*outbox.Message, 0)
	for _, msg := range r.messages {
		if msg.Status == shared.OutboxStatusPending {
			cp := *msg
			pending = append(pending, &cp)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].ID < pending[j].ID })

	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

// size returns the number of retained messages
func (r *OutboxRepository) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

func (r *OutboxRepository) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	msg, ok := r.messages[id]
	if !ok {
		return outbox.ErrMessageNotFound{ID: id}
	}
	msg.SetStatus(status)
	if msg.Status != shared.OutboxStatusPending {
		delete(r.messages, id)
	}
	return nil
}

func (r *OutboxRepository) IncrementAttempts(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	msg, ok := r.messages[id]
	if !ok {
		return outbox.ErrMessageNotFound{ID: id}
	}
	msg.IncrementAttempts()
	return nil
}
