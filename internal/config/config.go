package config

import (
	"os"
	"strconv"
)

// Config holds all configuration for the ledger service
type Config struct {
	Port        string
	DatabaseURL string
	LogLevel    string
	Redis       RedisConfig
	Events      EventsConfig
}

// RedisConfig holds the Redis connection used for the read model and events.
// An empty Addr disables both.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// EventsConfig names the consumer group that projects account events.
type EventsConfig struct {
	Group    string
	Consumer string
}

// Load loads configuration from environment variables with default values.
// An empty DATABASE_URL selects the in-memory account store.
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Events: EventsConfig{
			Group:    getEnv("ACCOUNT_EVENTS_GROUP", "ledger-projector"),
			Consumer: getEnv("ACCOUNT_EVENTS_CONSUMER", "ledger-projector-1"),
		},
	}
}

// getEnv retrieves an environment variable or returns a default value if not set
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt is getEnv for integers; unparsable values fall back to the default.
func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, strconv.Itoa(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return value
}
