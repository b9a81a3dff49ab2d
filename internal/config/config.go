// Package config loads engine settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Upper bounds on the per-request source list and merged feed length.
const (
	MaxSourcesLimit   = 18
	MaxFeedItemsLimit = 60
)

type Config struct {
	Debug bool

	// Source catalog
	FeedsConfigPath string // optional YAML replacing the embedded catalog
	MaxSources      int

	// Fetching
	FetchTimeout     time.Duration // per source URL
	FetchConcurrency int
	RetryAttempts    int
	RetryDelay       time.Duration
	UserAgent        string
	HostRateLimit    float64 // requests per second per host, 0 disables
	HostBurst        int

	// Merge
	MaxFeedItems int

	// Cache settings
	FeedTTL     time.Duration
	ItemTTL     time.Duration
	MaxFeedKeys int
	MaxItems    int

	// Collapse concurrent misses for the same region/category into one fetch.
	CollapseFetches bool

	MonitoringPort string
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		MaxSources:       MaxSourcesLimit,
		FetchTimeout:     12 * time.Second,
		FetchConcurrency: 16,
		RetryAttempts:    1,
		RetryDelay:       500 * time.Millisecond,
		UserAgent:        "newsdesk/1.0",
		HostRateLimit:    5,
		HostBurst:        5,
		MaxFeedItems:     MaxFeedItemsLimit,
		FeedTTL:          5 * time.Minute,
		ItemTTL:          90 * time.Minute,
		MaxFeedKeys:      72,
		MaxItems:         2000,
		CollapseFetches:  true,
		MonitoringPort:   "8080",
	}
}

// Load reads .env (when present) and the environment on top of Default.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	if debug := os.Getenv("DEBUG"); debug == "true" {
		cfg.Debug = true
	}

	cfg.FeedsConfigPath = os.Getenv("FEEDS_CONFIG_PATH")
	cfg.UserAgent = getEnvOrDefault("USER_AGENT", cfg.UserAgent)
	cfg.MonitoringPort = getEnvOrDefault("MONITORING_PORT", cfg.MonitoringPort)

	cfg.MaxSources = getEnvIntOrDefault("MAX_SOURCES", cfg.MaxSources)
	cfg.FetchConcurrency = getEnvIntOrDefault("FETCH_CONCURRENCY", cfg.FetchConcurrency)
	cfg.RetryAttempts = getEnvIntOrDefault("RETRY_ATTEMPTS", cfg.RetryAttempts)
	cfg.MaxFeedItems = getEnvIntOrDefault("MAX_FEED_ITEMS", cfg.MaxFeedItems)
	cfg.MaxFeedKeys = getEnvIntOrDefault("MAX_FEED_KEYS", cfg.MaxFeedKeys)
	cfg.MaxItems = getEnvIntOrDefault("MAX_ITEMS", cfg.MaxItems)
	cfg.HostBurst = getEnvIntOrDefault("HOST_BURST", cfg.HostBurst)
	cfg.HostRateLimit = getEnvFloatOrDefault("HOST_RATE_LIMIT", cfg.HostRateLimit)

	cfg.FetchTimeout = getEnvDurationOrDefault("FETCH_TIMEOUT", cfg.FetchTimeout)
	cfg.RetryDelay = getEnvDurationOrDefault("RETRY_DELAY", cfg.RetryDelay)
	cfg.FeedTTL = getEnvDurationOrDefault("FEED_TTL", cfg.FeedTTL)
	cfg.ItemTTL = getEnvDurationOrDefault("ITEM_TTL", cfg.ItemTTL)

	if v := os.Getenv("COLLAPSE_FETCHES"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.CollapseFetches = b
		}
	}

	return cfg, cfg.Validate()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func (c *Config) Validate() error {
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive")
	}
	if c.FetchConcurrency <= 0 {
		return fmt.Errorf("FETCH_CONCURRENCY must be positive")
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("RETRY_ATTEMPTS must be at least 1")
	}
	if c.MaxSources <= 0 || c.MaxSources > MaxSourcesLimit {
		return fmt.Errorf("MAX_SOURCES must be between 1 and %d", MaxSourcesLimit)
	}
	if c.MaxFeedItems <= 0 || c.MaxFeedItems > MaxFeedItemsLimit {
		return fmt.Errorf("MAX_FEED_ITEMS must be between 1 and %d", MaxFeedItemsLimit)
	}
	if c.FeedTTL <= 0 || c.ItemTTL <= 0 {
		return fmt.Errorf("FEED_TTL and ITEM_TTL must be positive")
	}
	if c.HostRateLimit < 0 {
		return fmt.Errorf("HOST_RATE_LIMIT must not be negative")
	}
	if c.MaxFeedKeys <= 0 || c.MaxItems <= 0 {
		return fmt.Errorf("MAX_FEED_KEYS and MAX_ITEMS must be positive")
	}
	return nil
}
