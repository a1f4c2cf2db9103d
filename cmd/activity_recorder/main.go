package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/executive-war-room/internal/activity_recorder/components"
	"github.com/executive-war-room/internal/activity_recorder/consumer"
	"github.com/executive-war-room/internal/activity_recorder/service"
	"github.com/executive-war-room/internal/config"
	"github.com/executive-war-room/internal/data/mongo"
	"github.com/executive-war-room/internal/logger"
	"github.com/executive-war-room/internal/platform/messaging/consumers"
	"github.com/executive-war-room/internal/platform/messaging/producers"
	"github.com/executive-war-room/internal/platform/metrics"
	"github.com/executive-war-room/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("activity_recorder")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Activity Recorder",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	m := metrics.New()

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB, cfg.Application.Name)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	activityRepo := mongo.NewActivityRepository(log, mongoDB.Database())
	if err := activityRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to ensure activity indexes", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka consumer
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	// Initialize Kafka DLQ producer; nil when KAFKA_DLQ_TOPIC is empty
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	var deadLetters producers.DeadLetterPublisher
	if dlqProducer != nil {
		deadLetters = dlqProducer
	}

	recordingService := components.CreateRecordingService(activityRepo, m, log, cfg)

	activityEventHandler := consumer.NewActivityEventHandler(
		log.With("component", "activity_event_handler"),
		recordingService,
		deadLetters,
	)

	log.Info("Starting Kafka consumer",
		"topic", cfg.Kafka.ActivityTopic,
		"group", cfg.Kafka.ConsumerGroup,
	)
	if err := kafkaConsumer.Subscribe(appCtx, activityEventHandler.HandleMessage); err != nil {
		log.Error("Failed to subscribe to activity topic", "error", err)
		os.Exit(1)
	}

	// Liveness and metrics
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	opsRouter := gin.New()
	opsRouter.Use(gin.Recovery())
	opsRouter.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.MongoDB.Timeout)
		defer cancel()
		if err := mongoDB.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	opsRouter.GET("/metrics", gin.WrapH(m.Handler()))
	opsServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      opsRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting ops HTTP server", "port", cfg.Server.Port)
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("ops HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
	}

	// Cancel the application context
	cancelAppCtx()

	// Shutdown the worker pool if it's a WorkerPoolRecordingService
	if wpService, ok := recordingService.(*service.WorkerPoolRecordingService); ok {
		wpService.Shutdown()
	}

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	if err = opsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Error during ops server shutdown", "error", err)
	}

	if dlqProducer != nil {
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	// Close Kafka consumer
	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	// Close MongoDB connection
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if err != nil {
		log.Error("Activity Recorder shutdown completed with errors")
	} else {
		log.Info("Activity Recorder shutdown completed successfully")
	}
}
