// Package ledger holds the event ledger domain: events, their evidence
// receipts, the forward-only lifecycle and the store contract.
package ledger

import (
	"strings"
	"time"

	"github.com/executive-war-room/internal/domain/shared"
)

// Status is an event's lifecycle state
type Status string

const (
	StatusNew      Status = "NEW"
	StatusAssigned Status = "ASSIGNED"
	StatusApproved Status = "APPROVED"
)

// rank orders statuses along the lifecycle
func (s Status) rank() int {
	switch s {
	case StatusNew:
		return 1
	case StatusAssigned:
		return 2
	case StatusApproved:
		return 3
	default:
		return 0
	}
}

// Valid reports whether s is a known status
func (s Status) Valid() bool { return s.rank() > 0 }

// ParseStatus normalises raw case-insensitively
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", ValidationError{Field: "status", Message: "must be one of NEW, ASSIGNED, APPROVED"}
	}
	return s, nil
}

// Event is a unit of operational work tracked in the ledger
type Event struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Org          string          `json:"org,omitempty"`
	BusinessUnit string          `json:"businessUnit,omitempty"`
	Amount       int64           `json:"amount"` // Stored in minor units
	Currency     shared.Currency `json:"currency"`
	Status       Status          `json:"status"`
	Owner        string          `json:"owner,omitempty"`
	AssignedBy   string          `json:"assignedBy,omitempty"`
	Receipts     []Receipt       `json:"receipts"`
	ApprovedAt   *time.Time      `json:"approvedAt,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
	Version      int             `json:"version"` // For optimistic locking
}

// NewEvent creates a NEW event
func NewEvent(id, title, org, businessUnit string, amount int64, currency string, now time.Time) (*Event, error) {
	id = strings.TrimSpace(id)
	title = strings.TrimSpace(title)
	if id == "" {
		return nil, ValidationError{Field: "id", Message: "is required"}
	}
	if title == "" {
		return nil, ValidationError{Field: "title", Message: "is required"}
	}
	if amount < 0 {
		return nil, ValidationError{Field: "amount", Message: "must not be negative"}
	}

	cur := shared.CurrencyUSD
	if currency != "" {
		parsed, err := shared.ParseCurrency(currency)
		if err != nil {
			return nil, ValidationError{Field: "currency", Message: "must be one of USD, GBP, EUR"}
		}
		cur = parsed
	}

	now = now.UTC()
	return &Event{
		ID:           id,
		Title:        title,
		Org:          strings.TrimSpace(org),
		BusinessUnit: strings.TrimSpace(businessUnit),
		Amount:       amount,
		Currency:     cur,
		Status:       StatusNew,
		Receipts:     []Receipt{},
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
	}, nil
}

// Approve moves the event to APPROVED. Approving an approved event changes
// nothing and reports changed=false.
func (e *Event) Approve(now time.Time) (changed bool, err error) {
	if e.Status == StatusApproved {
		return false, nil
	}
	if !e.Status.Valid() {
		return false, ErrInvalidTransition{EventID: e.ID, From: e.Status, To: StatusApproved}
	}

	at := now.UTC()
	e.Status = StatusApproved
	e.ApprovedAt = &at
	e.touch(now)
	return true, nil
}

// Assign sets owner and assignedBy together. When strict is set only NEW
// events may be assigned; otherwise ASSIGNED events are re-assigned.
func (e *Event) Assign(owner, assignedBy string, strict bool, now time.Time) error {
	owner = strings.TrimSpace(owner)
	assignedBy = strings.TrimSpace(assignedBy)
	if owner == "" {
		return ValidationError{Field: "owner", Message: "is required"}
	}
	if assignedBy == "" {
		return ValidationError{Field: "assignedBy", Message: "is required"}
	}

	switch e.Status {
	case StatusNew:
	case StatusAssigned:
		if strict {
			return ErrInvalidTransition{EventID: e.ID, From: e.Status, To: StatusAssigned}
		}
	default:
		return ErrInvalidTransition{EventID: e.ID, From: e.Status, To: StatusAssigned}
	}

	e.Status = StatusAssigned
	e.Owner = owner
	e.AssignedBy = assignedBy
	e.touch(now)
	return nil
}

// AttachReceipt validates r and appends it. The status is unchanged.
func (e *Event) AttachReceipt(r Receipt, now time.Time) (Receipt, error) {
	normalized, err := r.Normalize(e.ID, now.UTC())
	if err != nil {
		return Receipt{}, err
	}

	for _, existing := range e.Receipts {
		if existing.ID == normalized.ID {
			return Receipt{}, ValidationError{Field: "receipt.id", Message: "already attached: " + normalized.ID}
		}
		if normalized.AttachmentHash != "" && existing.AttachmentHash == normalized.AttachmentHash {
			return Receipt{}, ValidationError{Field: "receipt.attachmentHash", Message: "already attached by receipt " + existing.ID}
		}
	}

	e.Receipts = append(e.Receipts, normalized)
	e.touch(now)
	return normalized.Clone(), nil
}

// Validate checks the lifecycle invariants of a stored or seeded event
func (e *Event) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return ValidationError{Field: "id", Message: "is required"}
	}
	if strings.TrimSpace(e.Title) == "" {
		return ValidationError{Field: "title", Message: "is required"}
	}
	if !e.Status.Valid() {
		return ValidationError{Field: "status", Message: "must be one of NEW, ASSIGNED, APPROVED"}
	}
	if (e.ApprovedAt != nil) != (e.Status == StatusApproved) {
		return ValidationError{Field: "approvedAt", Message: "must be set exactly when status is APPROVED"}
	}
	if (e.Owner == "") != (e.AssignedBy == "") {
		return ValidationError{Field: "owner", Message: "owner and assignedBy must be set together"}
	}
	if e.Status == StatusAssigned && e.Owner == "" {
		return ValidationError{Field: "owner", Message: "is required for ASSIGNED events"}
	}
	if _, err := shared.ParseCurrency(string(e.Currency)); err != nil {
		return ValidationError{Field: "currency", Message: "must be one of USD, GBP, EUR"}
	}
	return nil
}

// Clone returns a deep copy so callers never share receipts with the store
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	out := *e
	out.Receipts = make([]Receipt, len(e.Receipts))
	for i, r := range e.Receipts {
		out.Receipts[i] = r.Clone()
	}
	if e.ApprovedAt != nil {
		at := *e.ApprovedAt
		out.ApprovedAt = &at
	}
	return &out
}

func (e *Event) touch(now time.Time) {
	e.UpdatedAt = now.UTC()
	e.Version++
}
