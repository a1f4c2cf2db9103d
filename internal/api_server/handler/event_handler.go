package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/executive-war-room/internal/api_server/middleware"
	"github.com/executive-war-room/internal/api_server/service"
	"github.com/executive-war-room/internal/domain/ledger"
)

// EventHandler handles HTTP requests for event ledger operations
type EventHandler struct {
	ledgerService service.LedgerService
	logger        *slog.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler(logger *slog.Logger, ledgerService service.LedgerService) *EventHandler {
	return &EventHandler{
		ledgerService: ledgerService,
		logger:        logger,
	}
}

// Approve moves an event to APPROVED
func (h *EventHandler) Approve(c *gin.Context) {
	var req ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	e, err := h.ledgerService.Approve(c.Request.Context(), req.EventID, actorFrom(c))
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	RespondEvent(c, e)
}

// Assign sets the event owner. assignedBy is the authenticated caller.
func (h *EventHandler) Assign(c *gin.Context) {
	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	e, err := h.ledgerService.Assign(c.Request.Context(), req.EventID, req.Owner, actorFrom(c))
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	RespondEvent(c, e)
}

// AttachReceipt appends an evidence receipt to an event
func (h *EventHandler) AttachReceipt(c *gin.Context) {
	var req AttachReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	e, err := h.ledgerService.AttachReceipt(c.Request.Context(), req.EventID, *req.Receipt, actorFrom(c))
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	RespondEvent(c, e)
}

// Create registers a new event
func (h *EventHandler) Create(c *gin.Context) {
	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	e, err := h.ledgerService.Create(c.Request.Context(), service.CreateEventInput{
		ID:           req.ID,
		Title:        req.Title,
		Org:          req.Org,
		BusinessUnit: req.BusinessUnit,
		Amount:       req.Amount,
		Currency:     req.Currency,
	}, actorFrom(c))
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	RespondCreated(c, e)
}

// GetByID retrieves one event, returns 404 if not found
func (h *EventHandler) GetByID(c *gin.Context) {
	e, err := h.ledgerService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	RespondEvent(c, e)
}

// List retrieves the events matching the query filters, ordered by id
func (h *EventHandler) List(c *gin.Context) {
	var query ListEventsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.logger.Error("Invalid query parameters", "error", err)
		RespondBadRequest(c, "Invalid query parameters")
		return
	}

	filter := ledger.Filter{
		Org:          query.Org,
		BusinessUnit: query.BusinessUnit,
		Owner:        query.Owner,
	}
	if query.Status != "" {
		status, err := ledger.ParseStatus(query.Status)
		if err != nil {
			RespondError(c, h.logger, err)
			return
		}
		filter.Status = status
	}

	events, err := h.ledgerService.List(c.Request.Context(), filter)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	if events == nil {
		events = []*ledger.Event{}
	}
	RespondOK(c, events)
}

// actorFrom attributes the request to the authenticated user, if any
func actorFrom(c *gin.Context) service.Actor {
	actor := service.Actor{CorrelationID: middleware.GetCorrelationID(c)}
	if user, ok := middleware.GetUser(c); ok {
		actor.Identity = user.Identity()
	}
	return actor
}
