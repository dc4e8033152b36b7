// Package config loads process configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds everything cmd/main.go needs to wire the process.
type Config struct {
	Addr        string
	Env         string
	DatabaseURL string
	LogLevel    string
	LogFormat   string

	// Default admission policy, applied to read-style endpoints.
	DefaultLimitMax    int
	DefaultLimitWindow time.Duration
	// Strict admission policy, applied to account creation and purchases.
	StrictLimitMax    int
	StrictLimitWindow time.Duration

	// AutoProvisionBuyers lets a purchase for an unknown account create a
	// placeholder account instead of failing with not-found.
	AutoProvisionBuyers bool
}

// Load reads the environment, applying defaults for everything optional.
func Load() *Config {
	return &Config{
		Addr:        envString("ADDR", ":8080"),
		Env:         envString("ENVIRONMENT", "development"),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		LogLevel:    envString("LOG_LEVEL", "INFO"),
		LogFormat:   envString("LOG_FORMAT", "json"),

		DefaultLimitMax:    envInt("RATE_LIMIT_MAX", 100),
		DefaultLimitWindow: envDuration("RATE_LIMIT_WINDOW", time.Minute),
		StrictLimitMax:     envInt("RATE_LIMIT_STRICT_MAX", 10),
		StrictLimitWindow:  envDuration("RATE_LIMIT_STRICT_WINDOW", time.Minute),

		AutoProvisionBuyers: envBool("AUTO_PROVISION_BUYERS", true),
	}
}

// IsDevelopment reports whether the process runs in a development context.
// Internal error detail is only surfaced to callers in development.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return fallback
}
