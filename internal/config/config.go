package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Pipeline
	PipelineFile   string // YAML file with parsing/mapping options
	MaxUploadBytes int64

	// External services
	InsightAPIURL string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	RetryAttempts  int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	MaxConcurrency int

	// Cache
	CacheTTL time.Duration

	// Observability
	OTLPEndpoint string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		PipelineFile:   getEnv("PIPELINE_CONFIG", ""),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_MB", 32)) << 20,

		InsightAPIURL: getEnv("INSIGHT_API_URL", "http://localhost:8090"),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		RetryAttempts:  getEnvInt("RETRY_ATTEMPTS", 3),
		RetryBaseDelay: getEnvDuration("RETRY_BASE_DELAY", 100*time.Millisecond),
		RetryMaxDelay:  getEnvDuration("RETRY_MAX_DELAY", 5*time.Second),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 4),

		CacheTTL: getEnvDuration("CACHE_TTL", 5*time.Minute),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}
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
