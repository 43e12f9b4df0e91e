package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("MARKET_DATA_SOURCE", "")
	t.Setenv("ENV", "")
	t.Setenv("PORT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "mock", cfg.MarketData.Source)
	assert.Equal(t, uint64(42), cfg.MarketData.MockSeed)
	assert.Equal(t, 10, cfg.Database.MaxConns)
	assert.Equal(t, 10*time.Minute, cfg.Redis.TTL)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("ENV", "production")
	t.Setenv("MARKET_DATA_SOURCE", "DuckDB")
	t.Setenv("DUCKDB_PATH", "/tmp/market.duckdb")
	t.Setenv("MOCK_SEED", "7")
	t.Setenv("API_RATE_LIMIT", "2.5")
	t.Setenv("REDIS_MARKET_TTL", "1h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "duckdb", cfg.MarketData.Source)
	assert.Equal(t, "/tmp/market.duckdb", cfg.MarketData.DuckDBPath)
	assert.Equal(t, uint64(7), cfg.MarketData.MockSeed)
	assert.InDelta(t, 2.5, cfg.RateLimit.RequestsPerSecond, 1e-9)
	assert.Equal(t, time.Hour, cfg.Redis.TTL)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "invalid env",
			env:  map[string]string{"ENV": "qa"},
		},
		{
			name: "unknown source",
			env:  map[string]string{"MARKET_DATA_SOURCE": "bloomberg"},
		},
		{
			name: "postgres without url",
			env:  map[string]string{"MARKET_DATA_SOURCE": "postgres", "DATABASE_URL": ""},
		},
		{
			name: "non-positive rate limit",
			env:  map[string]string{"API_RATE_LIMIT": "0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestGetEnvHelpers_FallBackOnGarbage(t *testing.T) {
	t.Setenv("TP_TEST_INT", "abc")
	t.Setenv("TP_TEST_BOOL", "maybe")
	t.Setenv("TP_TEST_DURATION", "soon")
	t.Setenv("TP_TEST_FLOAT", "x1")

	assert.Equal(t, 5, getEnvAsInt("TP_TEST_INT", 5))
	assert.True(t, getEnvAsBool("TP_TEST_BOOL", true))
	assert.Equal(t, 30*time.Second, getEnvAsDuration("TP_TEST_DURATION", "30s"))
	assert.InDelta(t, 1.5, getEnvAsFloat("TP_TEST_FLOAT", 1.5), 1e-9)
}

func TestNeedsDatabase(t *testing.T) {
	cfg := &Config{MarketData: MarketDataConfig{Source: "mock"}}
	assert.False(t, cfg.NeedsDatabase())

	cfg.Database.URL = "postgres://localhost/tradepilot"
	assert.True(t, cfg.NeedsDatabase())

	cfg = &Config{MarketData: MarketDataConfig{Source: "postgres"}}
	assert.True(t, cfg.NeedsDatabase())
}
