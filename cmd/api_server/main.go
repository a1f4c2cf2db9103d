package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/executive-war-room/internal/api_server"
	"github.com/executive-war-room/internal/api_server/outbox_poller"
	"github.com/executive-war-room/internal/api_server/service"
	"github.com/executive-war-room/internal/auth"
	"github.com/executive-war-room/internal/config"
	"github.com/executive-war-room/internal/data/memory"
	"github.com/executive-war-room/internal/data/mongo"
	"github.com/executive-war-room/internal/data/postgres"
	"github.com/executive-war-room/internal/data/redis"
	"github.com/executive-war-room/internal/domain/ledger"
	"github.com/executive-war-room/internal/domain/outbox"
	"github.com/executive-war-room/internal/domain/snapshot"
	"github.com/executive-war-room/internal/logger"
	"github.com/executive-war-room/internal/platform/messaging/producers"
	"github.com/executive-war-room/internal/platform/metrics"
	"github.com/executive-war-room/internal/platform/persistence"
)

// ledgerStore is the selected backend plus its outbox, which is nil unless
// the activity stream is enabled
type ledgerStore struct {
	events ledger.Repository
	outbox outbox.Repository
	close  func()
}

func openLedgerStore(ctx context.Context, log *slog.Logger, cfg *config.Config) (*ledgerStore, error) {
	streamed := cfg.Activity.Enabled

	switch cfg.Ledger.Backend {
	case config.BackendPostgres:
		postgresDB, err := persistence.NewPostgresDB(ctx, log, &cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		store := &ledgerStore{close: postgresDB.Close}
		var outboxRepo *postgres.OutboxRepository
		if streamed {
			outboxRepo = postgres.NewOutboxRepository(log, postgresDB)
			store.outbox = outboxRepo
		}
		store.events = postgres.NewEventRepository(log, postgresDB, outboxRepo)
		return store, nil

	case config.BackendRedis:
		redisDB, err := persistence.NewRedisDB(ctx, log, &cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis: %w", err)
		}
		store := &ledgerStore{
			events: redis.NewEventRepository(log, redisDB.Client(), cfg.Redis.KeyPrefix, cfg.Redis.MaxRetries, streamed),
			close: func() {
				if err := redisDB.Close(); err != nil {
					log.Error("Error closing Redis connection", "error", err)
				}
			},
		}
		if streamed {
			store.outbox = redis.NewOutboxRepository(log, redisDB.Client(), cfg.Redis.KeyPrefix, cfg.Redis.MaxRetries)
		}
		return store, nil

	default:
		store := &ledgerStore{close: func() {}}
		var outboxRepo *memory.OutboxRepository
		if streamed {
			outboxRepo = memory.NewOutboxRepository()
			store.outbox = outboxRepo
		}
		store.events = memory.NewEventRepository(outboxRepo)
		return store, nil
	}
}

func loadSeed(ctx context.Context, log *slog.Logger, repo ledger.Repository, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()

	n, err := service.LoadSeed(ctx, log, repo, f, time.Now().UTC())
	if err != nil {
		return err
	}
	log.Info("Seed events loaded", "path", path, "created", n)
	return nil
}

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("api_server")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting API Server",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
		"ledger_backend", cfg.Ledger.Backend,
		"activity_enabled", cfg.Activity.Enabled,
	)

	rates, err := snapshot.ParseRates(cfg.Snapshot.FXRates)
	if err != nil {
		log.Error("Invalid FX rates", "error", err)
		os.Exit(1)
	}

	m := metrics.New()

	store, err := openLedgerStore(appCtx, log, cfg)
	if err != nil {
		log.Error("Failed to open ledger store", "error", err)
		os.Exit(1)
	}

	if cfg.Ledger.SeedPath != "" {
		if err := loadSeed(appCtx, log, store.events, cfg.Ledger.SeedPath); err != nil {
			log.Error("Failed to load seed events", "error", err)
			os.Exit(1)
		}
	}

	if cfg.Auth.JWTSecret == "" {
		log.Warn("AUTH_JWT_SECRET is not set; every role-gated request will be denied")
	}
	var resolver auth.Resolver
	if cfg.Auth.JWTSecret != "" {
		resolver = auth.NewJWTResolver(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
	}
	enforcer := auth.NewEnforcer(log, resolver, cfg.Auth.SessionCookie)

	// Initialize services
	services := api_server.Services{
		Ledger: service.NewLedgerService(log, store.events, m, service.LedgerOptions{
			OperationTimeout: cfg.Ledger.OperationTimeout,
			StrictAssignment: cfg.Ledger.StrictAssignment,
		}),
		Snapshot: service.NewSnapshotService(log, store.events, rates, cfg.Ledger.OperationTimeout),
	}

	// Activity stream: Mongo read side, Kafka producer and the outbox poller
	var (
		mongoDB          *persistence.MongoDB
		activityProducer *producers.ActivityProducer
		poller           *outbox_poller.Poller
	)
	if cfg.Activity.Enabled {
		mongoDB, err = persistence.NewMongoDB(appCtx, log, &cfg.MongoDB, cfg.Application.Name)
		if err != nil {
			log.Error("Failed to initialize MongoDB", "error", err)
			os.Exit(1)
		}
		activityRepo := mongo.NewActivityRepository(log, mongoDB.Database())
		services.Activity = service.NewActivityService(log, activityRepo, store.events, cfg.Ledger.OperationTimeout)

		activityProducer, err = producers.NewActivityProducer(appCtx, log, &cfg.Kafka)
		if err != nil {
			log.Error("Failed to initialize activity Kafka producer", "error", err)
			os.Exit(1)
		}

		publisher := outbox_poller.NewActivityPublisher(store.outbox, activityProducer, m, log.With("component", "activity_publisher"))
		poller = outbox_poller.NewPoller(&cfg.Outbox, store.outbox, publisher, log.With("component", "outbox_poller"))
	}

	// Initialize REST server
	server := api_server.NewServer(log, cfg, services, enforcer, m)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	var wg sync.WaitGroup

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	if poller != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			poller.Start(appCtx)
		}()
	}

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	// Wait for the poller before closing what it publishes to
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()
	select {
	case <-wgChan:
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached waiting for outbox poller")
	}

	if activityProducer != nil {
		if err = activityProducer.Close(); err != nil {
			log.Error("Error closing activity Kafka producer", "error", err)
		}
	}

	if mongoDB != nil {
		if err = mongoDB.Close(shutdownCtx); err != nil {
			log.Error("Error closing MongoDB connection", "error", err)
		}
	}

	store.close()

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
