package api_server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/executive-war-room/internal/api_server/handler"
	"github.com/executive-war-room/internal/api_server/service"
	"github.com/executive-war-room/internal/auth"
	"github.com/executive-war-room/internal/config"
	"github.com/executive-war-room/internal/platform/metrics"
)

// Services are the application services exposed over HTTP. Activity may be
// nil, in which case the activity route is not mounted.
type Services struct {
	Ledger   service.LedgerService
	Snapshot service.SnapshotService
	Activity service.ActivityService
}

// Server handles HTTP requests and manages the application's lifecycle
type Server struct {
	logger     *slog.Logger // For structured logging
	httpServer *http.Server // Underlying HTTP server
	httpRouter *gin.Engine  // Gin router instance
}

// NewServer creates and configures a new HTTP server with the given services
func NewServer(log *slog.Logger, cfg *config.Config, services Services, enforcer *auth.Enforcer, m *metrics.Metrics) *Server {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	httpRouter := gin.New()

	handlers := routeHandlers{
		events:   handler.NewEventHandler(log, services.Ledger),
		snapshot: handler.NewSnapshotHandler(log, services.Snapshot),
	}
	if services.Activity != nil {
		handlers.activity = handler.NewActivityHandler(log, services.Activity)
	}

	setupRouter(log, httpRouter, cfg.Auth, enforcer, m, handlers)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		logger:     log,
		httpServer: httpServer,
		httpRouter: httpRouter,
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.httpRouter
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server within the context deadline
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}
	return nil
}
