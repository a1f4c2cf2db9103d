package service

import (
	"context"
	"time"

	"github.com/executive-war-room/internal/domain/activity"
	"github.com/executive-war-room/internal/domain/ledger"
	"github.com/executive-war-room/internal/domain/snapshot"
)

// Actor identifies who triggered a ledger operation and the request it came from
type Actor struct {
	Identity      string
	CorrelationID string
}

// CreateEventInput carries the attributes of a new event
type CreateEventInput struct {
	ID           string
	Title        string
	Org          string
	BusinessUnit string
	Amount       int64
	Currency     string
}

// LedgerService defines the interface for event ledger operations.
// Every call is bounded by the configured operation timeout; backend failures
// and timeouts are returned as *ledger.StoreError.
type LedgerService interface {
	// Create registers a NEW event
	// Returns ErrDuplicateEvent if the id is taken
	Create(ctx context.Context, in CreateEventInput, actor Actor) (*ledger.Event, error)

	// Approve moves the event to APPROVED. Approving an approved event returns it unchanged.
	Approve(ctx context.Context, eventID string, actor Actor) (*ledger.Event, error)

	// Assign sets the owner, recording actor as assignedBy
	Assign(ctx context.Context, eventID, owner string, actor Actor) (*ledger.Event, error)

	// AttachReceipt validates and appends a receipt without changing the status
	AttachReceipt(ctx context.Context, eventID string, receipt ledger.Receipt, actor Actor) (*ledger.Event, error)

	// Get returns ErrEventNotFound for unknown ids
	Get(ctx context.Context, eventID string) (*ledger.Event, error)

	// List returns matching events ordered by id
	List(ctx context.Context, f ledger.Filter) ([]*ledger.Event, error)
}

// SnapshotService builds executive snapshots from the current ledger state
type SnapshotService interface {
	Build(ctx context.Context, f snapshot.Filters, asOf time.Time) (snapshot.Snapshot, error)
}

// ActivityService reads the recorded audit trail of events
type ActivityService interface {
	// GetByEventID returns one page of the event's activities, newest first,
	// and the total number recorded
	GetByEventID(ctx context.Context, eventID string, page, perPage int) ([]*activity.Activity, int64, error)
}
