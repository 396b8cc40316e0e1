package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ExchangeLimit holds one exchange's rate-limit override.
type ExchangeLimit struct {
	Rate  float64 // requests per second
	Burst float64 // burst capacity
}

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Cache
	CacheBackend       string // "memory" or "ristretto"
	CacheMaxEntries    int    // 0 = unbounded (memory backend)
	CacheSweepInterval time.Duration

	// Per-kind TTLs
	PriceTTL   time.Duration
	TickerTTL  time.Duration
	BookTTL    time.Duration
	OHLCVTTL   time.Duration
	MarketsTTL time.Duration
	DefaultTTL time.Duration

	// Rate limiting
	RateLimitDefaultRate  float64
	RateLimitDefaultBurst float64
	RateLimitOverrides    map[string]ExchangeLimit

	// Retry
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	overrides, err := parseRateOverrides(os.Getenv("RATE_LIMIT_OVERRIDES"))
	if err != nil {
		return nil, fmt.Errorf("parse RATE_LIMIT_OVERRIDES: %w", err)
	}

	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Cache defaults
		CacheBackend:       getEnvOrDefault("CACHE_BACKEND", "memory"),
		CacheMaxEntries:    getIntOrDefault("CACHE_MAX_ENTRIES", 10000),
		CacheSweepInterval: getDurationOrDefault("CACHE_SWEEP_INTERVAL", 1*time.Minute),

		// TTL defaults: live prices stay hot for seconds, candles for a
		// minute, exchange-wide market lists for five.
		PriceTTL:   getDurationOrDefault("PRICE_TTL", 5*time.Second),
		TickerTTL:  getDurationOrDefault("TICKER_TTL", 10*time.Second),
		BookTTL:    getDurationOrDefault("BOOK_TTL", 5*time.Second),
		OHLCVTTL:   getDurationOrDefault("OHLCV_TTL", 60*time.Second),
		MarketsTTL: getDurationOrDefault("MARKETS_TTL", 5*time.Minute),
		DefaultTTL: getDurationOrDefault("DEFAULT_TTL", 30*time.Second),

		// Rate limit defaults
		RateLimitDefaultRate:  getFloat64OrDefault("RATE_LIMIT_DEFAULT_RATE", 10.0),
		RateLimitDefaultBurst: getFloat64OrDefault("RATE_LIMIT_DEFAULT_BURST", 20.0),
		RateLimitOverrides:    overrides,

		// Retry defaults
		RetryMaxAttempts: getIntOrDefault("RETRY_MAX_ATTEMPTS", 3),
		RetryBaseDelay:   getDurationOrDefault("RETRY_BASE_DELAY", 1*time.Second),
		RetryMaxDelay:    getDurationOrDefault("RETRY_MAX_DELAY", 30*time.Second),
	}

	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.CacheBackend != "memory" && c.CacheBackend != "ristretto" {
		return fmt.Errorf("CACHE_BACKEND must be 'memory' or 'ristretto', got %q", c.CacheBackend)
	}

	if c.RateLimitDefaultRate <= 0 {
		return fmt.Errorf("RATE_LIMIT_DEFAULT_RATE must be positive, got %f", c.RateLimitDefaultRate)
	}

	if c.RateLimitDefaultBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_DEFAULT_BURST must be positive, got %f", c.RateLimitDefaultBurst)
	}

	if c.RetryMaxAttempts < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1, got %d", c.RetryMaxAttempts)
	}

	if c.RetryBaseDelay <= 0 {
		return fmt.Errorf("RETRY_BASE_DELAY must be positive, got %s", c.RetryBaseDelay)
	}

	return nil
}

// parseRateOverrides parses "binance=10:20,kraken=15:30" into per-exchange
// limits, where each entry is exchange=rate:burst.
func parseRateOverrides(raw string) (map[string]ExchangeLimit, error) {
	if raw == "" {
		return nil, nil
	}

	overrides := make(map[string]ExchangeLimit)

	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		name, spec, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("entry %q: expected exchange=rate:burst", entry)
		}

		rateStr, burstStr, ok := strings.Cut(spec, ":")
		if !ok {
			return nil, fmt.Errorf("entry %q: expected exchange=rate:burst", entry)
		}

		rate, err := strconv.ParseFloat(rateStr, 64)
		if err != nil {
			return nil, fmt.Errorf("entry %q: bad rate: %w", entry, err)
		}

		burst, err := strconv.ParseFloat(burstStr, 64)
		if err != nil {
			return nil, fmt.Errorf("entry %q: bad burst: %w", entry, err)
		}

		if rate <= 0 || burst <= 0 {
			return nil, fmt.Errorf("entry %q: rate and burst must be positive", entry)
		}

		overrides[strings.ToLower(strings.TrimSpace(name))] = ExchangeLimit{Rate: rate, Burst: burst}
	}

	return overrides, nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}
