package ledger

import (
	"context"
	"sort"

	"github.com/executive-war-room/internal/domain/activity"
)

// Filter narrows List results. Zero fields match everything.
type Filter struct {
	Status       Status
	Org          string
	BusinessUnit string
	Owner        string
}

// Matches reports whether e satisfies every set field
func (f Filter) Matches(e *Event) bool {
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if f.Org != "" && e.Org != f.Org {
		return false
	}
	if f.BusinessUnit != "" && e.BusinessUnit != f.BusinessUnit {
		return false
	}
	if f.Owner != "" && e.Owner != f.Owner {
		return false
	}
	return true
}

// Mutation changes a working copy of an event. It returns the activity
// describing the change, or nil when nothing changed. Returning an error
// discards the working copy.
type Mutation func(e *Event) (*activity.Activity, error)

// Repository is the authoritative event store. Update applies mutations to a
// single event atomically and serially; distinct events proceed in parallel.
type Repository interface {
	// Create stores a new event. Returns ErrDuplicateEvent if the id is taken.
	Create(ctx context.Context, e *Event, act *activity.Activity) error
	// Get returns ErrEventNotFound for unknown ids
	Get(ctx context.Context, id string) (*Event, error)
	// List returns matching events ordered by id
	List(ctx context.Context, f Filter) ([]*Event, error)
	// Update runs mutate under the event's lock and persists the result together
	// with the returned activity. Returns ErrEventNotFound for unknown ids.
	Update(ctx context.Context, id string, mutate Mutation) (*Event, error)
}

// SortByID orders events by id in place
func SortByID(events []*Event) {
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
}
