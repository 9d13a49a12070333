// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	LogLevel string `validate:"oneof=debug info warn error"`

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int `validate:"gte=0"`
	InitialBackoff time.Duration
	MaxConcurrency int `validate:"gte=1"`

	// Cache for built calendars; zero disables expiry
	CacheTTL time.Duration

	// Observability; empty endpoint disables trace export
	OTLPEndpoint string

	// Supabase
	SupabaseURL        string `validate:"required_if=UseSupabase true,omitempty,url"`
	SupabaseAnonKey    string `validate:"required_if=UseSupabase true"`
	SupabaseServiceKey string `validate:"required_if=UseSupabase true"`
	UseSupabase        bool

	// Budget core; empty paths use the embedded tables
	BehaviorProfilesPath string
	RegionProfilesPath   string
	DefaultRegion        string `validate:"omitempty,alpha,len=2"`
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		LogLevel: getEnv("LOG_LEVEL", "info"),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 8),

		CacheTTL: getEnvDuration("CACHE_TTL", 5*time.Minute),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseAnonKey:    getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
		UseSupabase:        getEnv("USE_SUPABASE", "false") == "true",

		BehaviorProfilesPath: getEnv("BEHAVIOR_PROFILES_PATH", ""),
		RegionProfilesPath:   getEnv("REGION_PROFILES_PATH", ""),
		DefaultRegion:        getEnv("DEFAULT_REGION", "US"),
	}
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
