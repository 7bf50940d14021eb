package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "SEK", cfg.Engine.ReportingCurrency)
	assert.Equal(t, 600*time.Millisecond, cfg.Engine.LookupDebounce)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Empty(t, cfg.Redis.Addr)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("QUOTE_CACHE_TTL", "1m")
	t.Setenv("REPORTING_CURRENCY", "eur")
	t.Setenv("PROVIDER_RATE_PER_SECOND", "0.5")
	t.Setenv("LOOKUP_DEBOUNCE", "not-a-duration")

	cfg := Load()

	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Addr())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, time.Minute, cfg.Redis.QuoteCacheTTL)
	assert.Equal(t, "EUR", cfg.Engine.ReportingCurrency)
	assert.Equal(t, 0.5, cfg.Providers.RatePerSecond)
	assert.Equal(t, 600*time.Millisecond, cfg.Engine.LookupDebounce)
}

func TestLoad_KafkaDisabled(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "-")

	cfg := Load()

	assert.False(t, cfg.Kafka.Enabled())
}

func TestValidate(t *testing.T) {
	cfg := Load()
	cfg.Engine.ReportingCurrency = "KRONA"
	assert.Error(t, cfg.Validate())

	cfg = Load()
	cfg.Providers.RatePerSecond = 0
	assert.Error(t, cfg.Validate())
}

func TestConnectionString(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "portfolio", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/portfolio?sslmode=disable", d.ConnectionString())
}
