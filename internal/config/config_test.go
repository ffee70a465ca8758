package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "PRICE_SOURCE_URL", "PRICE_CACHE_TTL_MS", "FETCH_TIMEOUT_MS", "PRICE_STORE",
		"REDIS_URL", "DB_USER", "DB_PASSWORD", "DB_HOST", "DB_PORT", "DB_NAME",
		"EXCHANGE_RATE_URL", "DEFAULT_CURRENCY", "SKINBOX_URL", "CASEDROP_URL", "RECORD_VIEWS",
	} {
		t.Setenv(key, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	cfg := FromEnv()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "https://prices.csgotrader.app/latest/prices_v6.json", cfg.Prices.SourceURL)
	assert.Equal(t, 6*time.Hour, cfg.Prices.CacheTTL)
	assert.Equal(t, 10*time.Second, cfg.Prices.FetchTimeout)
	assert.Equal(t, StoreMemory, cfg.Prices.Store)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, "USD", cfg.Currency.Default)
	assert.False(t, cfg.RecordViews)
	assert.False(t, cfg.NeedsRedis())
	assert.False(t, cfg.NeedsDatabase())
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("PRICE_CACHE_TTL_MS", "60000")
	t.Setenv("FETCH_TIMEOUT_MS", "2500")
	t.Setenv("PRICE_STORE", "Postgres")
	t.Setenv("DEFAULT_CURRENCY", "eur")
	t.Setenv("RECORD_VIEWS", "true")
	t.Setenv("DB_USER", "casecheck")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_NAME", "cases")

	cfg := FromEnv()

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, time.Minute, cfg.Prices.CacheTTL)
	assert.Equal(t, 2500*time.Millisecond, cfg.Prices.FetchTimeout)
	assert.Equal(t, StorePostgres, cfg.Prices.Store)
	assert.Equal(t, "EUR", cfg.Currency.Default)
	assert.True(t, cfg.RecordViews)
	assert.True(t, cfg.NeedsDatabase())
	assert.Equal(t, "postgres://casecheck:secret@db:5432/cases", cfg.DatabaseURL())
}

func TestInvalidNumbersFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("PRICE_CACHE_TTL_MS", "soon")
	t.Setenv("FETCH_TIMEOUT_MS", "-5")
	t.Setenv("RECORD_VIEWS", "maybe")

	cfg := FromEnv()

	assert.Equal(t, 6*time.Hour, cfg.Prices.CacheTTL)
	assert.Equal(t, 10*time.Second, cfg.Prices.FetchTimeout)
	assert.False(t, cfg.RecordViews)
}

func TestRedisURLEnablesRedis(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_URL", "redis://cache:6379/1")

	cfg := FromEnv()

	assert.True(t, cfg.NeedsRedis())
	assert.Equal(t, "redis://cache:6379/1", cfg.Redis.URL)
}
