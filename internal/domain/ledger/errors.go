package ledger

import (
	"errors"
	"fmt"
)

// ErrConcurrentModification indicates an optimistic concurrency check failed
var ErrConcurrentModification = errors.New("concurrent modification detected")

// ValidationError reports malformed or missing input. It is always a client error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return "validation failed: " + e.Field + ": " + e.Message
}

// Is matches any ValidationError when the target carries no field
func (e ValidationError) Is(target error) bool {
	t, ok := target.(ValidationError)
	if !ok {
		return false
	}
	return t.Field == "" || t.Field == e.Field
}

// ErrEventNotFound indicates an unknown event id
type ErrEventNotFound struct {
	EventID string
}

func (e ErrEventNotFound) Error() string {
	return "event not found: " + e.EventID
}

// Is implements the errors.Is interface for ErrEventNotFound
func (e ErrEventNotFound) Is(target error) bool {
	t, ok := target.(ErrEventNotFound)
	if !ok {
		return false
	}
	// If the target EventID is empty, consider it a match for any ErrEventNotFound
	return t.EventID == "" || t.EventID == e.EventID
}

// ErrDuplicateEvent indicates event id uniqueness violation
type ErrDuplicateEvent struct {
	EventID string
}

func (e ErrDuplicateEvent) Error() string {
	return "event already exists: " + e.EventID
}

// Is implements the errors.Is interface for ErrDuplicateEvent
func (e ErrDuplicateEvent) Is(target error) bool {
	t, ok := target.(ErrDuplicateEvent)
	if !ok {
		return false
	}
	return t.EventID == "" || t.EventID == e.EventID
}

// ErrInvalidTransition indicates a lifecycle move the ledger does not allow
type ErrInvalidTransition struct {
	EventID string
	From    Status
	To      Status
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid transition for event %s: %s -> %s", e.EventID, e.From, e.To)
}

// Is implements the errors.Is interface for ErrInvalidTransition
func (e ErrInvalidTransition) Is(target error) bool {
	t, ok := target.(ErrInvalidTransition)
	if !ok {
		return false
	}
	return t.EventID == "" || t.EventID == e.EventID
}

// StoreError wraps a backend or transport failure, including timeouts
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return "ledger store " + e.Op + " failed: " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError wraps err unless it is already a domain error or a StoreError
func NewStoreError(op string, err error) error {
	if err == nil || IsDomainError(err) {
		return err
	}
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// IsDomainError reports whether err is one of the ledger's client-facing errors
func IsDomainError(err error) bool {
	return errors.Is(err, ValidationError{}) ||
		errors.Is(err, ErrEventNotFound{}) ||
		errors.Is(err, ErrDuplicateEvent{}) ||
		errors.Is(err, ErrInvalidTransition{})
}
