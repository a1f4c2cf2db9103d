// Package memory provides the in-process ledger store used for development,
// tests and single-instance deployments.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/executive-war-room/internal/domain/activity"
	"github.com/executive-war-room/internal/domain/ledger"
	"github.com/executive-war-room/internal/domain/outbox"
)

type entry struct {
	// lock is a one-slot semaphore so waiters can give up on ctx
	lock  chan struct{}
	event *ledger.Event
}

// EventRepository keeps events in a map. Stored events are never modified in
// place: Update swaps in a mutated copy, so readers can clone under the read lock.
type EventRepository struct {
	mu      sync.RWMutex
	entries map[string]*entry
	outbox  *OutboxRepository
}

// NewEventRepository creates an empty store. When ob is non-nil every recorded
// activity is queued on it in the same critical section as the mutation.
func NewEventRepository(ob *OutboxRepository) *EventRepository {
	return &EventRepository{
		entries: make(map[string]*entry),
		outbox:  ob,
	}
}

func (r *EventRepository) Create(ctx context.Context, e *ledger.Event, act *activity.Activity) error {
	if err := ctx.Err(); err != nil {
		return ledger.NewStoreError("create", err)
	}
	if err := e.Validate(); err != nil {
		return err
	}

	msg, err := r.newMessage(act)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[e.ID]; exists {
		return ledger.ErrDuplicateEvent{EventID: e.ID}
	}
	r.entries[e.ID] = &entry{
		lock:  make(chan struct{}, 1),
		event: e.Clone(),
	}
	if msg != nil {
		r.outbox.add(msg)
	}
	return nil
}

func (r *EventRepository) Get(ctx context.Context, id string) (*ledger.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, ledger.NewStoreError("get", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	ent, ok := r.entries[id]
	if !ok {
		return nil, ledger.ErrEventNotFound{EventID: id}
	}
	return ent.event.Clone(), nil
}

func (r *EventRepository) List(ctx context.Context, f ledger.Filter) ([]*ledger.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, ledger.NewStoreError("list", err)
	}

	r.mu.RLock()
	events := make([]*ledger.Event, 0, len(r.entries))
	for _, ent := range r.entries {
		if f.Matches(ent.event) {
			events = append(events, ent.event.Clone())
		}
	}
	r.mu.RUnlock()

	ledger.SortByID(events)
	return events, nil
}

func (r *EventRepository) Update(ctx context.Context, id string, mutate ledger.Mutation) (*ledger.Event, error) {
	r.mu.RLock()
	ent, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ledger.ErrEventNotFound{EventID: id}
	}

	select {
	case ent.lock <- struct{}{}:
	case <-ctx.Done():
		return nil, ledger.NewStoreError("update", fmt.Errorf("waiting for event %s: %w", id, ctx.Err()))
	}
	defer func() { <-ent.lock }()

	r.mu.RLock()
	working := ent.event.Clone()
	r.mu.RUnlock()

	act, err := mutate(working)
	if err != nil {
		return nil, err
	}
	if act == nil {
		return working, nil
	}
	if err := working.Validate(); err != nil {
		return nil, err
	}

	msg, err := r.newMessage(act)
	if err != nil {
		return nil, err
	}
	// Nothing is committed once the deadline has passed
	if err := ctx.Err(); err != nil {
		return nil, ledger.NewStoreError("update", err)
	}

	r.mu.Lock()
	ent.event = working
	if msg != nil {
		r.outbox.add(msg)
	}
	r.mu.Unlock()

	return working.Clone(), nil
}

// Len returns the number of stored events
func (r *EventRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *EventRepository) newMessage(act *activity.Activity) (*outbox.Message, error) {
	if r.outbox == nil || act == nil {
		return nil, nil
	}
	msg, err := outbox.NewMessage(act)
	if err != nil {
		return nil, ledger.NewStoreError("outbox", err)
	}
	return msg, nil
}
