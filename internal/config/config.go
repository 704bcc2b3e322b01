// Package config reads application configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port     string
	Env      string
	LogLevel string

	CORSAllowedOrigins []string

	// DatabaseURL enables the Postgres booking archive when set.
	DatabaseURL string

	// Redis-backed sessions; UseMemorySessions forces the in-process store
	// even when RedisAddr is set.
	RedisAddr         string
	RedisPassword     string
	UseMemorySessions bool
	SessionTTL        time.Duration

	// DoctorsFile overrides the embedded doctor catalogue.
	DoctorsFile string

	RetainContactFields bool
	MaxShownSlots       int

	ChatRateLimit float64
	ChatRateBurst int

	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:                getEnv("PORT", "8080"),
		Env:                 getEnv("ENV", "development"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins:  splitList(getEnv("CORS_ALLOWED_ORIGINS", "")),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		RedisAddr:           getEnv("REDIS_ADDR", ""),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		UseMemorySessions:   getEnvAsBool("USE_MEMORY_SESSIONS", false),
		SessionTTL:          getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		DoctorsFile:         getEnv("DOCTORS_FILE", ""),
		RetainContactFields: getEnvAsBool("RETAIN_CONTACT_FIELDS", true),
		MaxShownSlots:       getEnvAsInt("MAX_SHOWN_SLOTS", 8),
		ChatRateLimit:       getEnvAsFloat("CHAT_RATE_LIMIT", 0),
		ChatRateBurst:       getEnvAsInt("CHAT_RATE_BURST", 10),
		ShutdownTimeout:     getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func splitList(value string) []string {
	if value == "" {
		return nil
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

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
