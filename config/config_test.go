package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/etnz/stockfolio/batch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "portfolio.json", cfg.Store())
	assert.Equal(t, 5*time.Second, cfg.ExchangeTimeout)
	assert.Equal(t, 10*time.Second, cfg.AggregatorTimeout)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.Nil(t, cfg.ClampAdjustedCost)
	assert.Equal(t, batch.Options{BatchSize: 10, Concurrency: 5}, cfg.BatchOptions())
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("PCS_DATA", "/var/lib/pcs")
	t.Setenv("PCS_STORE", "p.db")
	t.Setenv("PCS_CLAMP_ADJUSTED_COST", "false")
	t.Setenv("PCS_EXCHANGE_TIMEOUT", "2s")
	t.Setenv("PCS_CACHE_TTL", "30000")
	t.Setenv("PCS_CONCURRENCY", "3")
	t.Setenv("PCS_BATCH_DELAY", "250ms")
	t.Setenv("PCS_UPDATE_INTERVAL", "not a duration")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/var/lib/pcs", "p.db"), cfg.Store())
	require.NotNil(t, cfg.ClampAdjustedCost)
	assert.False(t, *cfg.ClampAdjustedCost)
	assert.Equal(t, 2*time.Second, cfg.ExchangeTimeout)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, batch.Options{BatchSize: 10, Concurrency: 3, Delay: 250 * time.Millisecond}, cfg.BatchOptions())
	assert.Zero(t, cfg.UpdateInterval, "invalid values keep the default")
}

func TestLoadDotEnv(t *testing.T) {
	env := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(env, []byte("PCS_STORE=/tmp/from-dotenv.json\nPCS_LOG_LEVEL=debug\n"), 0644))
	t.Setenv("PCS_LOG_LEVEL", "error") // the environment wins over .env

	// godotenv.Load sets variables, make sure the test does not leak them
	t.Setenv("PCS_STORE", "")
	os.Unsetenv("PCS_STORE")

	cfg, err := Load(env)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/from-dotenv.json", cfg.Store())
	assert.Equal(t, "error", cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	valid := Config{StorePath: "p.json", ExchangeTimeout: time.Second, AggregatorTimeout: time.Second, BatchSize: 1, Concurrency: 1}
	require.NoError(t, valid.Validate())

	tests := map[string]func(*Config){
		"no store":          func(c *Config) { c.StorePath = "" },
		"zero timeout":      func(c *Config) { c.ExchangeTimeout = 0 },
		"negative ttl":      func(c *Config) { c.CacheTTL = -time.Second },
		"zero batch":        func(c *Config) { c.BatchSize = 0 },
		"zero concurrency":  func(c *Config) { c.Concurrency = 0 },
		"negative interval": func(c *Config) { c.UpdateInterval = -time.Second },
	}
	for name, edit := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid
			edit(&c)
			assert.Error(t, c.Validate())
		})
	}
}
