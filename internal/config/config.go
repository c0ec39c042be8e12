// Package config provides environment-driven configuration for the MEDIATE server.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Secret wraps a sensitive string to prevent accidental logging or marshalling.
type Secret string

// String implements fmt.Stringer, returning a redacted placeholder.
func (s Secret) String() string { return "[REDACTED]" }

// GoString implements fmt.GoStringer, returning a redacted placeholder.
func (s Secret) GoString() string { return "[REDACTED]" }

// MarshalText implements encoding.TextMarshaler, returning a redacted placeholder.
func (s Secret) MarshalText() ([]byte, error) { return []byte("[REDACTED]"), nil }

// Value returns the underlying secret string.
func (s Secret) Value() string { return string(s) }

// Storage backends.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config holds all application configuration values.
type Config struct {
	DatabaseURL     Secret
	StorageBackend  string
	Port            string
	MetricsPort     string
	ListenHost      string
	CORSOrigins     []string
	LogLevel        string
	LogFormat       string
	BootstrapAPIKey Secret
	PolicyFile      string
	DBMaxConns      int
	EventQueueSize  int
	RateLimitRPS    int
	RateLimitBurst  int
}

// Load reads configuration from environment variables with defaults and
// validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:     Secret(envOrDefault("DATABASE_URL", "")),
		StorageBackend:  envOrDefault("STORAGE_BACKEND", BackendPostgres),
		Port:            envOrDefault("PORT", "3030"),
		MetricsPort:     envOrDefault("METRICS_PORT", "9091"),
		ListenHost:      envOrDefault("LISTEN_HOST", "127.0.0.1"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "text"),
		BootstrapAPIKey: Secret(envOrDefault("BOOTSTRAP_API_KEY", "")),
		PolicyFile:      envOrDefault("MODERATION_POLICY_FILE", ""),
	}

	ints := []struct {
		key      string
		fallback int
		min, max int
		dst      *int
	}{
		{"DB_MAX_CONNS", 20, 1, 500, &cfg.DBMaxConns},
		{"EVENT_QUEUE_SIZE", 1000, 1, 1_000_000, &cfg.EventQueueSize},
		{"RATE_LIMIT_RPS", 20, 1, 100_000, &cfg.RateLimitRPS},
		{"RATE_LIMIT_BURST", 40, 1, 100_000, &cfg.RateLimitBurst},
	}
	for _, f := range ints {
		v, err := envInt(f.key, f.fallback, f.min, f.max)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}

	for _, o := range strings.Split(envOrDefault("CORS_ORIGINS", "http://localhost:3000"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Addr returns the API listen address in host:port format.
func (c *Config) Addr() string {
	return c.ListenHost + ":" + c.Port
}

// MetricsAddr returns the metrics listen address in host:port format.
func (c *Config) MetricsAddr() string {
	return c.ListenHost + ":" + c.MetricsPort
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c *Config) NewLogger() *logrus.Logger {
	log := logrus.New()

	// validate has already checked the level.
	level, _ := logrus.ParseLevel(c.LogLevel) //nolint:errcheck
	log.SetLevel(level)

	if c.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return log
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func envInt(key string, fallback, lo, hi int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil || v < lo || v > hi {
		return 0, fmt.Errorf("%s must be an integer between %d and %d", key, lo, hi)
	}

	return v, nil
}
