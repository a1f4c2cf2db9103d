// Package config provides configuration structures and validation for the application.
// It handles environment-based configuration for the HTTP server, the ledger store
// backends, authorization, the activity stream and operational parameters.
package config

import (
	"errors"
	"strings"
	"time"
)

// Ledger backends selectable through LEDGER_BACKEND
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config holds the complete application configuration with settings for all components.
// Each field represents a major subsystem's configuration and is validated during
// application startup.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Ledger      LedgerConfig
	Auth        AuthConfig
	Snapshot    SnapshotConfig
	Activity    ActivityConfig
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	Redis       RedisConfig
	MongoDB     MongoDBConfig
	Outbox      OutboxConfig
	WorkerPool  WorkerPoolConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// LedgerConfig contains event ledger store configuration
type LedgerConfig struct {
	Backend          string        // memory, postgres or redis
	OperationTimeout time.Duration // Upper bound for a single store call
	StrictAssignment bool          // Reject re-assignment of ASSIGNED events
	SeedPath         string        // Optional JSON file of events loaded at startup
}

// AuthConfig contains authorization enforcer configuration.
// An empty JWTSecret leaves the enforcer unconfigured, which denies every call.
type AuthConfig struct {
	JWTSecret         string
	JWTIssuer         string
	SessionCookie     string
	AssignRole        string
	CreateRole        string
	ApproveRole       string // empty means approve is not role-gated
	AttachReceiptRole string // empty means attach-receipt is not role-gated
}

// SnapshotConfig contains executive snapshot configuration
type SnapshotConfig struct {
	// FXRates is a comma separated list of CODE:rate pairs expressing the USD value
	// of one unit of each currency, e.g. "USD:1,GBP:1.27,EUR:1.08".
	FXRates string
}

// ActivityConfig toggles the activity stream (outbox poller, Kafka, MongoDB)
type ActivityConfig struct {
	Enabled bool
}

// KafkaConfig contains Kafka configuration
type KafkaConfig struct {
	Brokers           string
	ActivityTopic     string
	NumPartitions     int // Number of partitions for topics
	ReplicationFactor int // Replication factor for topics
	ConsumerGroup     string
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	StartOffset       int64
	DLQTopic          string // Topic for Dead Letter Queue
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string        // Database connection string
	MaxConns        int32         // Maximum number of open connections
	MinConns        int32         // Maximum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
	MigrationsPath  string        // Path to migration files
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxRetries   int // Optimistic transaction retries before giving up
	KeyPrefix    string
}

// MongoDBConfig contains MongoDB configuration
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// OutboxConfig contains outbox pattern configuration
type OutboxConfig struct {
	PollingInterval  time.Duration
	BatchSize        int
	MaxRetryAttempts int // Maximum number of retry attempts for outbox messages
}

// WorkerPoolConfig contains worker pool configuration
type WorkerPoolConfig struct {
	Size int // Maximum number of workers in the pool
}

// validate performs validation of all configuration values, ensuring they meet
// minimum requirements and logical constraints. Backend specific settings are only
// checked when that backend is in use.
func (c *Config) validate() error {
	var validationErrors []string

	// Validate Server config
	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	// Validate Ledger config
	switch c.Ledger.Backend {
	case BackendMemory, BackendPostgres, BackendRedis:
	default:
		validationErrors = append(validationErrors, "LEDGER_BACKEND must be one of memory, postgres, redis")
	}
	if c.Ledger.OperationTimeout <= 0 {
		validationErrors = append(validationErrors, "LEDGER_OPERATION_TIMEOUT must be greater than 0")
	}

	// Validate Auth config
	if c.Auth.AssignRole == "" {
		validationErrors = append(validationErrors, "AUTH_ASSIGN_ROLE is required")
	}
	if c.Auth.CreateRole == "" {
		validationErrors = append(validationErrors, "AUTH_CREATE_ROLE is required")
	}

	// Validate PostgreSQL config
	if c.Ledger.Backend == BackendPostgres {
		if c.Postgres.URL == "" {
			validationErrors = append(validationErrors, "POSTGRES_URL is required")
		}
		if c.Postgres.MaxConns <= 0 {
			validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
		}
		if c.Postgres.MinConns <= 0 {
			validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
		}
		if c.Postgres.ConnMaxLifetime <= 0 {
			validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
		}
		if c.Postgres.ConnMaxIdleTime <= 0 {
			validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
		}
	}

	// Validate Redis config
	if c.Ledger.Backend == BackendRedis {
		if c.Redis.Addr == "" {
			validationErrors = append(validationErrors, "REDIS_ADDR is required")
		}
		if c.Redis.MaxRetries <= 0 {
			validationErrors = append(validationErrors, "REDIS_MAX_RETRIES must be greater than 0")
		}
		if c.Redis.KeyPrefix == "" {
			validationErrors = append(validationErrors, "REDIS_KEY_PREFIX is required")
		}
	}

	if c.Activity.Enabled {
		// Validate Kafka config
		if len(c.Kafka.Brokers) == 0 {
			validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
		}
		if c.Kafka.ActivityTopic == "" {
			validationErrors = append(validationErrors, "KAFKA_ACTIVITY_TOPIC is required")
		}
		if c.Kafka.ConsumerGroup == "" {
			validationErrors = append(validationErrors, "KAFKA_CONSUMER_GROUP is required")
		}
		if c.Kafka.MinBytes <= 0 {
			validationErrors = append(validationErrors, "KAFKA_CONSUMER_MIN_BYTES must be greater than 0")
		}
		if c.Kafka.MaxBytes <= 0 {
			validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_BYTES must be greater than 0")
		}
		if c.Kafka.MaxWait <= 0 {
			validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_WAIT must be greater than 0")
		}

		// Validate MongoDB config
		if c.MongoDB.URI == "" {
			validationErrors = append(validationErrors, "MONGO_URI is required")
		}
		if c.MongoDB.Database == "" {
			validationErrors = append(validationErrors, "MONGO_DATABASE is required")
		}
		if c.MongoDB.Timeout <= 0 {
			validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
		}
		if c.MongoDB.MaxPoolSize <= 0 {
			validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
		}

		// Validate Outbox config
		if c.Outbox.PollingInterval <= 0 {
			validationErrors = append(validationErrors, "OUTBOX_POLLING_INTERVAL must be greater than 0")
		}
		if c.Outbox.BatchSize <= 0 {
			validationErrors = append(validationErrors, "OUTBOX_BATCH_SIZE must be greater than 0")
		}
		if c.Outbox.MaxRetryAttempts <= 0 {
			validationErrors = append(validationErrors, "OUTBOX_MAX_RETRY_ATTEMPTS must be greater than 0")
		}
	}

	// Validate WorkerPool config
	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
