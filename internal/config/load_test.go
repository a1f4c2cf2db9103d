package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_HappyPath(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "config_test")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	tempConfigsSubDir := filepath.Join(tempDir, "configs")
	err = os.Mkdir(tempConfigsSubDir, 0755)
	require.NoError(t, err)

	testAppName := "TestApp"
	testPort := 9090
	testLogLevel := "debug"
	testSecret := "s3cr3t"

	envContent := fmt.Sprintf(
		"APP_NAME=%s\nSERVER_PORT=%d\nLOG_LEVEL=%s\nAUTH_JWT_SECRET=%s\nLEDGER_STRICT_ASSIGNMENT=true\n",
		testAppName, testPort, testLogLevel, testSecret,
	)
	envFilePath := filepath.Join(tempConfigsSubDir, "test_happy.env")
	err = os.WriteFile(envFilePath, []byte(envContent), 0644)
	require.NoError(t, err)

	originalWD, err := os.Getwd()
	require.NoError(t, err)
	defer func() {
		_ = os.Chdir(originalWD)
	}()

	err = os.Chdir(tempDir)
	require.NoError(t, err)

	cfg, err := LoadConfig("test_happy")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, testAppName, cfg.Application.Name)
	assert.Equal(t, testPort, cfg.Server.Port)
	assert.Equal(t, testLogLevel, cfg.Logging.Level)
	assert.Equal(t, testSecret, cfg.Auth.JWTSecret)
	assert.True(t, cfg.Ledger.StrictAssignment)

	assert.Equal(t, "development", cfg.Application.Env)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, BackendMemory, cfg.Ledger.Backend)
	assert.Equal(t, 5*time.Second, cfg.Ledger.OperationTimeout)
	assert.Equal(t, "operator", cfg.Auth.AssignRole)
	assert.Equal(t, "war_room_session", cfg.Auth.SessionCookie)
	assert.Equal(t, "ledger_activity", cfg.Kafka.ActivityTopic)
	assert.Equal(t, 10, cfg.WorkerPool.Size)

	cfgWithName, err := LoadConfigWithName("configs/test_happy")
	require.NoError(t, err)
	require.NotNil(t, cfgWithName)
	assert.Equal(t, testAppName, cfgWithName.Application.Name)

	cfgWithNameAndType, err := LoadConfigWithNameAndType("configs/test_happy", "env")
	require.NoError(t, err)
	require.NotNil(t, cfgWithNameAndType)
	assert.Equal(t, testAppName, cfgWithNameAndType.Application.Name)
}

func TestConfig_Validate(t *testing.T) {
	newDefaultConfig := func() *Config {
		v := viper.New()
		setDefaults(v)
		return buildConfig(v)
	}

	t.Run("DefaultsAreValid", func(t *testing.T) {
		cfg := newDefaultConfig()
		assert.NoError(t, cfg.validate(), "Default config should be valid")
	})

	t.Run("UnknownBackend", func(t *testing.T) {
		cfg := newDefaultConfig()
		cfg.Ledger.Backend = "dynamo"
		err := cfg.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "LEDGER_BACKEND")
	})

	t.Run("PostgresSettingsCheckedOnlyForPostgresBackend", func(t *testing.T) {
		cfg := newDefaultConfig()
		cfg.Postgres.URL = ""
		assert.NoError(t, cfg.validate())

		cfg.Ledger.Backend = BackendPostgres
		err := cfg.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "POSTGRES_URL is required")
	})

	t.Run("RedisSettingsCheckedOnlyForRedisBackend", func(t *testing.T) {
		cfg := newDefaultConfig()
		cfg.Redis.MaxRetries = 0
		assert.NoError(t, cfg.validate())

		cfg.Ledger.Backend = BackendRedis
		err := cfg.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "REDIS_MAX_RETRIES must be greater than 0")
	})

	t.Run("ActivityStreamSettings", func(t *testing.T) {
		cfg := newDefaultConfig()
		cfg.Activity.Enabled = true
		cfg.Kafka.ActivityTopic = ""
		cfg.MongoDB.URI = ""
		err := cfg.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "KAFKA_ACTIVITY_TOPIC is required")
		assert.Contains(t, err.Error(), "MONGO_URI is required")
	})

	t.Run("CollectsAllViolations", func(t *testing.T) {
		cfg := newDefaultConfig()
		cfg.Server.Port = 0
		cfg.Ledger.OperationTimeout = 0
		cfg.WorkerPool.Size = 0
		err := cfg.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SERVER_PORT must be greater than 0")
		assert.Contains(t, err.Error(), "LEDGER_OPERATION_TIMEOUT must be greater than 0")
		assert.Contains(t, err.Error(), "WORKER_POOL_SIZE must be greater than 0")
	})
}
