package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/executive-war-room/internal/api_server/service"
	"github.com/executive-war-room/internal/domain/activity"
)

// ActivityHandler serves the recorded audit trail of events
type ActivityHandler struct {
	activityService service.ActivityService
	logger          *slog.Logger
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(logger *slog.Logger, activityService service.ActivityService) *ActivityHandler {
	return &ActivityHandler{
		activityService: activityService,
		logger:          logger,
	}
}

// GetByEventID retrieves paginated activity for an event, newest first
func (h *ActivityHandler) GetByEventID(c *gin.Context) {
	eventID := c.Param("id")

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Error("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	activities, total, err := h.activityService.GetByEventID(c.Request.Context(), eventID, pagination.Page, pagination.PerPage)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	if activities == nil {
		activities = []*activity.Activity{}
	}

	RespondWithPaginatedData(c, http.StatusOK, activities, pagination.Page, pagination.PerPage, int(total))
}
