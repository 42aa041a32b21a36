package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port        string
	Env         string
	LogLevel    string
	DatabaseURL string

	// Inbound SMS webhook tuning
	SMSProvider             string
	SMSDedupeTTL            time.Duration
	ConversationScanWindow  int
	TenantFallbackHeuristic bool
	// DefaultTenantID pins every inbound message to one tenant.
	// Single-congregation deployments set this and skip attribution guesswork.
	DefaultTenantID string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		SMSProvider:             strings.ToLower(strings.TrimSpace(getEnv("SMS_PROVIDER", "twilio"))),
		SMSDedupeTTL:            getEnvAsDuration("SMS_DEDUPE_TTL", 24*time.Hour),
		ConversationScanWindow:  getEnvAsInt("CONVERSATION_SCAN_WINDOW", 25),
		TenantFallbackHeuristic: getEnvAsBool("TENANT_FALLBACK_HEURISTIC", true),
		DefaultTenantID:         getEnv("DEFAULT_TENANT_ID", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
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
