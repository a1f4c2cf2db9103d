// Package activity defines the audit records emitted for every state-changing
// ledger operation and the store they are recorded in.
package activity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type identifies the ledger operation an activity records
type Type string

const (
	TypeEventCreated    Type = "EVENT_CREATED"
	TypeEventAssigned   Type = "EVENT_ASSIGNED"
	TypeEventApproved   Type = "EVENT_APPROVED"
	TypeReceiptAttached Type = "RECEIPT_ATTACHED"
)

// Activity is a single audit record for one event mutation
type Activity struct {
	ID            string    `json:"id" bson:"activity_id"`
	EventID       string    `json:"eventId" bson:"event_id"`
	Type          Type      `json:"type" bson:"type"`
	Actor         string    `json:"actor,omitempty" bson:"actor,omitempty"`
	Status        string    `json:"status" bson:"status"` // event status after the change
	Owner         string    `json:"owner,omitempty" bson:"owner,omitempty"`
	ReceiptID     string    `json:"receiptId,omitempty" bson:"receipt_id,omitempty"`
	Gate          string    `json:"gate,omitempty" bson:"gate,omitempty"`
	CorrelationID string    `json:"correlationId,omitempty" bson:"correlation_id,omitempty"`
	OccurredAt    time.Time `json:"occurredAt" bson:"occurred_at"`
}

// New creates an activity with a fresh id
func New(eventID string, t Type, actor, status, correlationID string, at time.Time) *Activity {
	return &Activity{
		ID:            uuid.NewString(),
		EventID:       eventID,
		Type:          t,
		Actor:         actor,
		Status:        status,
		CorrelationID: correlationID,
		OccurredAt:    at.UTC(),
	}
}

// WithOwner records the owner set by an assignment
func (a *Activity) WithOwner(owner string) *Activity {
	a.Owner = owner
	return a
}

// WithReceipt records the receipt attached by the change
func (a *Activity) WithReceipt(id, gate string) *Activity {
	a.ReceiptID = id
	a.Gate = gate
	return a
}

// ErrInvalidActivity marks an activity that can never be recorded
var ErrInvalidActivity = errors.New("invalid activity")

// Validate checks the fields every recorded activity must carry
func (a *Activity) Validate() error {
	switch {
	case a.ID == "":
		return fmt.Errorf("%w: id is required", ErrInvalidActivity)
	case a.EventID == "":
		return fmt.Errorf("%w: eventId is required", ErrInvalidActivity)
	case a.OccurredAt.IsZero():
		return fmt.Errorf("%w: occurredAt is required", ErrInvalidActivity)
	}
	switch a.Type {
	case TypeEventCreated, TypeEventAssigned, TypeEventApproved, TypeReceiptAttached:
		return nil
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidActivity, a.Type)
	}
}

// Repository persists recorded activities
type Repository interface {
	// Create stores an activity. Returns ErrDuplicateActivity if the id was already recorded.
	Create(ctx context.Context, a *Activity) error
	// GetByEventID returns the audit trail of an event, newest first
	GetByEventID(ctx context.Context, eventID string, limit, offset int) ([]*Activity, error)
	CountByEventID(ctx context.Context, eventID string) (int64, error)
}

// ErrDuplicateActivity indicates the activity id was already recorded
type ErrDuplicateActivity struct {
	ID string
}

func (e ErrDuplicateActivity) Error() string {
	return "duplicate activity: " + e.ID
}

// Is matches any ErrDuplicateActivity when the target carries no id
func (e ErrDuplicateActivity) Is(target error) bool {
	t, ok := target.(ErrDuplicateActivity)
	if !ok {
		return false
	}
	return t.ID == "" || t.ID == e.ID
}
