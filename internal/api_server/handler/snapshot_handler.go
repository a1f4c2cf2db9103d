package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/executive-war-room/internal/api_server/service"
	"github.com/executive-war-room/internal/domain/snapshot"
)

// SnapshotHandler serves the executive snapshot
type SnapshotHandler struct {
	snapshotService service.SnapshotService
	logger          *slog.Logger
	now             func() time.Time
}

// NewSnapshotHandler creates a new snapshot handler
func NewSnapshotHandler(logger *slog.Logger, snapshotService service.SnapshotService) *SnapshotHandler {
	return &SnapshotHandler{
		snapshotService: snapshotService,
		logger:          logger,
		now:             time.Now,
	}
}

// Get returns the snapshot payload directly. Missing or unknown filters take
// their defaults; asOf defaults to the current second.
func (h *SnapshotHandler) Get(c *gin.Context) {
	var query SnapshotQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.logger.Error("Invalid query parameters", "error", err)
		RespondBadRequest(c, "Invalid query parameters")
		return
	}

	asOf := h.now().UTC().Truncate(time.Second)
	if query.AsOf != "" {
		parsed, err := time.Parse(time.RFC3339, query.AsOf)
		if err != nil {
			RespondBadRequest(c, "asOf must be an RFC 3339 timestamp")
			return
		}
		asOf = parsed
	}

	filters := snapshot.NormalizeFilters(query.Org, query.Period, query.Currency, query.BusinessUnit)
	s, err := h.snapshotService.Build(c.Request.Context(), filters, asOf)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, s)
}
