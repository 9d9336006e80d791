package config

import (
	"os"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Checkfront upstream credentials. All three must be present for the
	// proxy endpoints to work; otherwise they answer with a
	// not-configured error.
	CheckfrontHost      string
	CheckfrontAPIKey    string
	CheckfrontAPISecret string

	// Anti-forgery nonce issued to the widget and required on proxy calls.
	NonceSecret string
	NonceTTL    time.Duration

	CORSAllowedOrigins []string
	UpstreamTimeout    time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:                getEnv("PORT", "8080"),
		Env:                 getEnv("ENV", "development"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		CheckfrontHost:      getEnv("CHECKFRONT_HOST", ""),
		CheckfrontAPIKey:    getEnv("CHECKFRONT_API_KEY", ""),
		CheckfrontAPISecret: getEnv("CHECKFRONT_API_SECRET", ""),
		NonceSecret:         getEnv("WIDGET_NONCE_SECRET", ""),
		NonceTTL:            getEnvAsDuration("WIDGET_NONCE_TTL", 12*time.Hour),
		CORSAllowedOrigins:  getEnvAsSlice("CORS_ALLOWED_ORIGINS", nil),
		UpstreamTimeout:     getEnvAsDuration("UPSTREAM_TIMEOUT", 20*time.Second),
	}
}

// CheckfrontConfigured reports whether all upstream credentials are set.
func (c *Config) CheckfrontConfigured() bool {
	return c.CheckfrontHost != "" && c.CheckfrontAPIKey != "" && c.CheckfrontAPISecret != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsSlice(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
