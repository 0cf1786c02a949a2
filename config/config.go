// Package config reads the pcs configuration from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/etnz/stockfolio/batch"
	"github.com/etnz/stockfolio/quote"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir           string // PCS_DATA
	StorePath         string // PCS_STORE, relative to DataDir
	LogLevel          string
	LogPretty         bool
	ClampAdjustedCost *bool // nil keeps the persisted setting
	ExchangeTimeout   time.Duration
	AggregatorTimeout time.Duration
	CacheTTL          time.Duration
	BatchSize         int
	Concurrency       int
	BatchDelay        time.Duration
	UpdateInterval    time.Duration // 0 keeps the persisted setting
}

// Load reads configuration from .env files, if any, then from environment variables.
func Load(files ...string) (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load(files...)

	cfg := &Config{
		DataDir:           getEnv("PCS_DATA", "."),
		StorePath:         getEnv("PCS_STORE", "portfolio.json"),
		LogLevel:          getEnv("PCS_LOG_LEVEL", "warn"),
		LogPretty:         getEnvAsBool("PCS_LOG_PRETTY", true),
		ClampAdjustedCost: getEnvAsOptionalBool("PCS_CLAMP_ADJUSTED_COST"),
		ExchangeTimeout:   getEnvAsDuration("PCS_EXCHANGE_TIMEOUT", quote.DefaultExchangeTimeout),
		AggregatorTimeout: getEnvAsDuration("PCS_AGGREGATOR_TIMEOUT", quote.DefaultAggregatorTimeout),
		CacheTTL:          getEnvAsDuration("PCS_CACHE_TTL", quote.DefaultTTL),
		BatchSize:         getEnvAsInt("PCS_BATCH_SIZE", batch.DefaultBatchSize),
		Concurrency:       getEnvAsInt("PCS_CONCURRENCY", batch.DefaultConcurrency),
		BatchDelay:        getEnvAsDuration("PCS_BATCH_DELAY", 0),
		UpdateInterval:    getEnvAsDuration("PCS_UPDATE_INTERVAL", 0),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that values are usable.
func (c *Config) Validate() error {
	if c.StorePath == "" {
		return fmt.Errorf("PCS_STORE is required")
	}
	if c.ExchangeTimeout <= 0 || c.AggregatorTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("PCS_CACHE_TTL cannot be negative")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("PCS_BATCH_SIZE must be positive, got %d", c.BatchSize)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("PCS_CONCURRENCY must be positive, got %d", c.Concurrency)
	}
	if c.UpdateInterval < 0 {
		return fmt.Errorf("PCS_UPDATE_INTERVAL cannot be negative")
	}
	return nil
}

// Store returns the path of the portfolio store.
func (c *Config) Store() string {
	if filepath.IsAbs(c.StorePath) {
		return c.StorePath
	}
	return filepath.Join(c.DataDir, c.StorePath)
}

// BatchOptions returns the batch options for price refreshes.
func (c *Config) BatchOptions() batch.Options {
	return batch.Options{BatchSize: c.BatchSize, Concurrency: c.Concurrency, Delay: c.BatchDelay}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsOptionalBool(key string) *bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return &boolVal
		}
	}
	return nil
}

// getEnvAsDuration accepts Go durations ("5s") or plain milliseconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}
