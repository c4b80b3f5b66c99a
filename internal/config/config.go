package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort   string
	DatabaseType string
	DatabaseURL  string
	DatabasePath string

	SessionDuration   time.Duration
	PairingCodeTTL    time.Duration
	DeviceTokenSecret string
	SnapshotCacheTTL  time.Duration
	AuthRateLimit     int
	AuthRateWindow    time.Duration

	AppBaseURL string

	// AWS SES notifications
	AWSRegion    string
	SESFromEmail string
	SESFromName  string

	// OAuth sign-in for parent accounts
	GoogleClientID     string
	GoogleClientSecret string
	AppleClientID      string
	AppleClientSecret  string
}

// Load reads configuration from the environment with sensible defaults.
// A .env file in the working directory is applied first if present.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}

	return &Config{
		ServerPort:   getEnv("PORT", "8080"),
		DatabaseType: getEnv("DB_TYPE", "sqlite"),
		DatabaseURL:  getEnv("DB_URL", ""),
		DatabasePath: getEnv("DB_PATH", "./choreboard.db"),

		SessionDuration:   getEnvDuration("SESSION_DURATION", 24*time.Hour),
		PairingCodeTTL:    getEnvDuration("PAIRING_CODE_TTL", 24*time.Hour),
		DeviceTokenSecret: getEnv("DEVICE_TOKEN_SECRET", "dev-only-insecure-secret"),
		SnapshotCacheTTL:  getEnvDuration("SNAPSHOT_CACHE_TTL", 7*24*time.Hour),
		AuthRateLimit:     getEnvInt("AUTH_RATE_LIMIT", 10),
		AuthRateWindow:    getEnvDuration("AUTH_RATE_WINDOW", time.Minute),

		AppBaseURL: getEnv("APP_BASE_URL", "http://localhost:8080"),

		AWSRegion:    getEnv("AWS_REGION", "us-east-1"),
		SESFromEmail: getEnv("SES_FROM_EMAIL", ""),
		SESFromName:  getEnv("SES_FROM_NAME", "Choreboard"),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		AppleClientID:      getEnv("APPLE_CLIENT_ID", ""),
		AppleClientSecret:  getEnv("APPLE_CLIENT_SECRET", ""),
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("Invalid duration for %s, using default %s", key, defaultValue)
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Printf("Invalid integer for %s, using default %d", key, defaultValue)
	}
	return defaultValue
}
