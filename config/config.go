package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server configuration
	Port        string
	Environment string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string

	// VIP admission
	VipSecret       string
	VipSecretBcrypt string

	// Snapshot configuration
	SnapshotBackend string // "redis" or "file"
	SnapshotKey     string
	SnapshotPath    string

	// Queue configuration
	UpcomingPreviewLimit int

	// Rate limiting
	SubmitRateLimit  int
	SubmitRateWindow time.Duration

	// Monitoring
	EnableMetrics bool
	MetricsPort   string
}

func LoadConfig() *Config {
	return &Config{
		// Server
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),

		// VIP admission
		VipSecret:       getEnv("VIP_SECRET", ""),
		VipSecretBcrypt: getEnv("VIP_SECRET_BCRYPT", ""),

		// Snapshot
		SnapshotBackend: getEnv("SNAPSHOT_BACKEND", "redis"),
		SnapshotKey:     getEnv("SNAPSHOT_KEY", "turns:snapshot"),
		SnapshotPath:    getEnv("SNAPSHOT_PATH", "pb_data/turns_snapshot.json"),

		// Queue
		UpcomingPreviewLimit: getEnvAsInt("UPCOMING_PREVIEW_LIMIT", 5),

		// Rate limiting
		SubmitRateLimit:  getEnvAsInt("SUBMIT_RATE_LIMIT", 30),
		SubmitRateWindow: getEnvAsDuration("SUBMIT_RATE_WINDOW", "1m"),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		MetricsPort:   getEnv("METRICS_PORT", "9090"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
