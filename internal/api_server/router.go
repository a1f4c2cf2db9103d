package api_server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/executive-war-room/internal/api_server/handler"
	"github.com/executive-war-room/internal/api_server/middleware"
	"github.com/executive-war-room/internal/auth"
	"github.com/executive-war-room/internal/config"
	"github.com/executive-war-room/internal/platform/metrics"
)

// routeHandlers groups the handlers mounted by setupRouter. activity is nil
// when the activity stream is disabled.
type routeHandlers struct {
	events   *handler.EventHandler
	snapshot *handler.SnapshotHandler
	activity *handler.ActivityHandler
}

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	authCfg config.AuthConfig,
	enforcer *auth.Enforcer,
	m *metrics.Metrics,
	h routeHandlers,
) {
	r.HandleMethodNotAllowed = true

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Metrics(m))

	r.NoMethod(handler.RespondMethodNotAllowed)
	r.NoRoute(func(c *gin.Context) {
		handler.RespondNotFound(c, "Route not found")
	})

	api := r.Group("/api")
	{
		// Ledger operations
		api.POST("/approve", middleware.Authorize(enforcer, authCfg.ApproveRole), h.events.Approve)
		api.POST("/assign", middleware.RequireRole(enforcer, authCfg.AssignRole), h.events.Assign)
		api.POST("/attach-receipt", middleware.Authorize(enforcer, authCfg.AttachReceiptRole), h.events.AttachReceipt)

		// Executive snapshot
		api.GET("/executive-snapshot", h.snapshot.Get)

		// API v1 endpoints
		v1 := api.Group("/v1")
		{
			events := v1.Group("/events")
			{
				events.GET("", h.events.List)
				events.POST("", middleware.RequireRole(enforcer, authCfg.CreateRole), h.events.Create)
				events.GET("/:id", h.events.GetByID)
				if h.activity != nil {
					events.GET("/:id/activity", h.activity.GetByEventID)
				}
			}
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})

	r.GET("/metrics", gin.WrapH(m.Handler()))
}
