package handler

import "github.com/executive-war-room/internal/domain/ledger"

// ApproveRequest represents a request to approve an event
type ApproveRequest struct {
	EventID string `json:"eventId" binding:"required"`
}

// AssignRequest represents a request to assign an event owner.
// The assigner is always the authenticated caller.
type AssignRequest struct {
	EventID string `json:"eventId" binding:"required"`
	Owner   string `json:"owner" binding:"required"`
}

// AttachReceiptRequest represents a request to attach an evidence receipt
type AttachReceiptRequest struct {
	EventID string          `json:"eventId" binding:"required"`
	Receipt *ledger.Receipt `json:"receipt" binding:"required"`
}

// CreateEventRequest represents a request to register a new event
type CreateEventRequest struct {
	ID           string `json:"id" binding:"required"`
	Title        string `json:"title" binding:"required"`
	Org          string `json:"org"`
	BusinessUnit string `json:"businessUnit"`
	Amount       int64  `json:"amount" binding:"min=0"`
	Currency     string `json:"currency"`
}

// ListEventsQuery represents the filters of the event list endpoint
type ListEventsQuery struct {
	Status       string `form:"status"`
	Org          string `form:"org"`
	BusinessUnit string `form:"businessUnit"`
	Owner        string `form:"owner"`
}

// SnapshotQuery represents the executive snapshot filters. Absent values take defaults.
type SnapshotQuery struct {
	Org          string `form:"org"`
	Period       string `form:"period"`
	Currency     string `form:"currency"`
	BusinessUnit string `form:"businessUnit"`
	AsOf         string `form:"asOf"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}
