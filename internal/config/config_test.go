package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 5432, cfg.DBPort)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, uint32(5), cfg.BreakerFailures)
	assert.Equal(t, 10*time.Second, cfg.MongoTimeout)
	assert.Equal(t, uint64(20), cfg.MongoMaxPoolSize)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.True(t, cfg.UsesMemoryStores())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("MONGO_URI", "mongodb://mongo:27017")
	t.Setenv("DB_HOST", "postgres")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("SESSION_TTL", "5m")
	t.Setenv("MONGO_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, 6543, cfg.DBPort)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 5*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 3*time.Second, cfg.MongoTimeout)
	assert.False(t, cfg.UsesMemoryStores())
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "squeeze.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_port: \"7070\"\nredis_addr: redis:6379\nlog_format: console\n"), 0o600))
	t.Setenv(FileEnv, path)
	t.Setenv("REDIS_ADDR", "override:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.HTTPPort)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, "override:6379", cfg.RedisAddr)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	t.Setenv(FileEnv, filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_InvalidTimeout(t *testing.T) {
	t.Setenv("SESSION_TTL", "0s")

	_, err := Load()
	assert.Error(t, err)
}
