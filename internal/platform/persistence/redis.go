package persistence

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/executive-war-room/internal/config"
	"github.com/redis/go-redis/v9"
)

type RedisDB struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisOptions maps configuration onto client options
func NewRedisOptions(cfg *config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

func NewRedisDB(ctx context.Context, logger *slog.Logger, cfg *config.RedisConfig) (*RedisDB, error) {
	client := redis.NewClient(NewRedisOptions(cfg))

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	logger.Info("Connected to Redis", "addr", cfg.Addr, "db", cfg.DB)

	return &RedisDB{
		client: client,
		logger: logger,
	}, nil
}

func (db *RedisDB) Client() *redis.Client {
	return db.client
}

func (db *RedisDB) Close() error {
	if err := db.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}
	db.logger.Info("Closed Redis connection")
	return nil
}
