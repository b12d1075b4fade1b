// Package config provides environment configuration for the cortex server.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// Storage
	DBPath string

	// NATS settings
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// JWT settings
	JWTSecret string

	// Engine rate limits per operation class
	MemoryOpsLimit   int
	MemoryOpsWindow  time.Duration
	RecallLimit      int
	RecallWindow     time.Duration
	VoiceTokenLimit  int
	VoiceTokenWindow time.Duration

	// Coarse HTTP surface limit
	HTTPRateLimit  int
	HTTPRateWindow time.Duration

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 60*time.Second),

		// Storage
		DBPath: getEnv("CORTEX_DB_PATH", "data/cortex.db"),

		// NATS
		NATSURL:      getEnv("NATS_URL", "nats://localhost:4222"),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", "development-secret-change-in-production"),

		// Engine rate limits
		MemoryOpsLimit:   getIntEnv("MEMORY_OPS_LIMIT", 60),
		MemoryOpsWindow:  getDurationEnv("MEMORY_OPS_WINDOW", time.Minute),
		RecallLimit:      getIntEnv("RECALL_LIMIT", 120),
		RecallWindow:     getDurationEnv("RECALL_WINDOW", time.Minute),
		VoiceTokenLimit:  getIntEnv("VOICE_TOKEN_LIMIT", 10),
		VoiceTokenWindow: getDurationEnv("VOICE_TOKEN_WINDOW", time.Minute),

		// HTTP surface
		HTTPRateLimit:  getIntEnv("HTTP_RATE_LIMIT", 300),
		HTTPRateWindow: getDurationEnv("HTTP_RATE_WINDOW", time.Minute),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
