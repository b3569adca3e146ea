package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_YAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  host: db.internal
  port: 6432
  database: fulfillment
redis:
  addr: cache:6379
notifier:
  backends: [redis, kafka]
  timeout: 500ms
loyalty_defaults:
  enabled: true
  earn_rate: "0.2"
`), 0o600))

	t.Setenv("DB_HOST", "db.override")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "db.override", cfg.Database.Host)
	assert.Equal(t, 6432, cfg.Database.Port)
	assert.Equal(t, "fulfillment", cfg.Database.Database)
	assert.Equal(t, "restaurant", cfg.Database.User, "default kept")
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, []string{"redis", "kafka"}, cfg.Notifier.Backends)
	assert.Equal(t, 500*time.Millisecond, cfg.Notifier.Timeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)

	s, err := cfg.Loyalty.Settings()
	require.NoError(t, err)
	assert.True(t, s.LoyaltyEnabled)
	assert.True(t, decimal.RequireFromString("0.2").Equal(s.EarnRate))
	assert.Equal(t, 365, s.ExpiryDays)
}

func TestLoad_MissingFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Database.Port, cfg.Database.Port)
}

func TestLoad_BadPortEnv(t *testing.T) {
	t.Setenv("DB_PORT", "five")
	_, err := Load("")
	assert.Error(t, err)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	c := DatabaseConfig{Host: "h", Port: 1, User: "u", Password: "p", Database: "d"}
	assert.Equal(t, "host=h port=1 user=u password=p dbname=d sslmode=disable", c.DSN())
}

func TestRabbitMQConfig_URL(t *testing.T) {
	c := RabbitMQConfig{Host: "mq", Port: 5672, User: "guest", Password: "p@ss", VHost: "/"}
	assert.Equal(t, "amqp://guest:p%40ss@mq:5672/", c.URL())

	c.Port, c.VHost, c.UseTLS = 5671, "kitchen", true
	assert.Equal(t, "amqps://guest:p%40ss@mq:5671/kitchen", c.URL())
}
