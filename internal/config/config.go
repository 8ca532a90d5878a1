// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Call risk settings
	DefaultCountryCode  string // Prepended when a number starts with a national "0"
	CacheMaxEntries     int    // Per-tier cap for the local risk cache
	ScamTTLDays         int    // Expiry for scam-tier records
	SpamTTLDays         int    // Expiry for spam-tier records
	AggregationStrategy string // "highest_risk", "majority_vote", "weighted_average"
	ProviderTimeout     time.Duration
	CheckTimeout        time.Duration // Overall budget for a client-visible check
	SilenceUnknown      bool          // Default for callers that did not state a preference

	// Security
	AdminSecret  string // X-Admin-Secret for provider/whitelist management
	RateLimitRPM int

	// Observability
	OTLPEndpoint string // OTLP gRPC endpoint for traces (optional)
}

// Defaults
const (
	DefaultPort            = "8080"
	DefaultEnv             = "development"
	DefaultLogLevel        = "info"
	DefaultCountry         = "+27"
	DefaultCacheMaxEntries = 10000
	DefaultScamTTLDays     = 30
	DefaultSpamTTLDays     = 7
	DefaultStrategy        = "highest_risk"
	DefaultProviderTimeout = 5 * time.Second
	DefaultCheckTimeout    = 15 * time.Second
	DefaultRateLimit       = 120
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnv("PORT", DefaultPort),
		Env:                 getEnv("ENV", DefaultEnv),
		LogLevel:            getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:         os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		DefaultCountryCode:  getEnv("DEFAULT_COUNTRY_CODE", DefaultCountry),
		CacheMaxEntries:     getEnvInt("CACHE_MAX_ENTRIES", DefaultCacheMaxEntries),
		ScamTTLDays:         getEnvInt("SCAM_TTL_DAYS", DefaultScamTTLDays),
		SpamTTLDays:         getEnvInt("SPAM_TTL_DAYS", DefaultSpamTTLDays),
		AggregationStrategy: getEnv("AGGREGATION_STRATEGY", DefaultStrategy),
		ProviderTimeout:     getEnvDurationMs("PROVIDER_TIMEOUT_MS", DefaultProviderTimeout),
		CheckTimeout:        getEnvDurationMs("CHECK_TIMEOUT_MS", DefaultCheckTimeout),
		SilenceUnknown:      getEnvBool("SILENCE_UNKNOWN", false),
		AdminSecret:         os.Getenv("ADMIN_SECRET"),
		RateLimitRPM:        getEnvInt("RATE_LIMIT_RPM", DefaultRateLimit),
		OTLPEndpoint:        os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present and coherent
func (c *Config) Validate() error {
	switch c.AggregationStrategy {
	case "highest_risk", "majority_vote", "weighted_average":
	default:
		return fmt.Errorf("AGGREGATION_STRATEGY %q is not one of highest_risk, majority_vote, weighted_average", c.AggregationStrategy)
	}

	if c.CacheMaxEntries <= 0 {
		return fmt.Errorf("CACHE_MAX_ENTRIES must be positive, got %d", c.CacheMaxEntries)
	}
	if c.ScamTTLDays <= 0 || c.SpamTTLDays <= 0 {
		return fmt.Errorf("SCAM_TTL_DAYS and SPAM_TTL_DAYS must be positive")
	}
	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT_MS must be positive")
	}
	if c.CheckTimeout < c.ProviderTimeout {
		return fmt.Errorf("CHECK_TIMEOUT_MS (%s) must be at least PROVIDER_TIMEOUT_MS (%s)", c.CheckTimeout, c.ProviderTimeout)
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDurationMs(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if ms, err := strconv.ParseInt(value, 10, 64); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}
