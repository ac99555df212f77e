package config

import (
	"os"
	"strconv"
	"time"

	"mcspec/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig
	Resolver ResolverConfig
	Data     DataConfig
	Database DatabaseConfig
	History  HistoryConfig
	LogLevel string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	UIPort  string
	GinMode string
}

// ResolverConfig holds live-resolution settings
type ResolverConfig struct {
	Debounce         time.Duration
	AssumeContinuous bool
}

// DataConfig holds dataset settings
type DataConfig struct {
	File string        // optional dataset loaded at startup
	TTL  time.Duration // lifetime of uploaded datasets in the cache
}

// DatabaseConfig holds database connection settings. An empty URL selects
// the in-memory history store.
type DatabaseConfig struct {
	URL     string
	SSLMode string
}

// HistoryConfig holds history retention settings
type HistoryConfig struct {
	Limit int
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Server:   *loadServerConfig(),
		Resolver: *loadResolverConfig(),
		Data:     *loadDataConfig(),
		Database: *loadDatabaseConfig(),
		History:  *loadHistoryConfig(),
		LogLevel: getEnvOrDefault("LOG_LEVEL", "INFO"),
	}

	// Validate required fields
	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		UIPort:  getEnvOrDefault("UI_PORT", "8081"),
		GinMode: getEnvOrDefault("GIN_MODE", "debug"),
	}
}

func loadResolverConfig() *ResolverConfig {
	return &ResolverConfig{
		Debounce:         time.Duration(getEnvIntOrDefault("DEBOUNCE_MS", 400)) * time.Millisecond,
		AssumeContinuous: getEnvBoolOrDefault("ASSUME_CONTINUOUS", false),
	}
}

func loadDataConfig() *DataConfig {
	return &DataConfig{
		File: getEnvOrDefault("DATA_FILE", ""),
		TTL:  getEnvDurationOrDefault("DATASET_TTL", 30*time.Minute),
	}
}

func loadDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		URL:     getEnvOrDefault("DATABASE_URL", ""),
		SSLMode: getEnvOrDefault("SSL_MODE", "disable"),
	}
}

func loadHistoryConfig() *HistoryConfig {
	return &HistoryConfig{
		Limit: getEnvIntOrDefault("HISTORY_LIMIT", 25),
	}
}

func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return errors.ConfigInvalid("PORT must not be empty")
	}
	if config.Resolver.Debounce <= 0 {
		return errors.ConfigInvalid("DEBOUNCE_MS must be positive")
	}
	if config.History.Limit <= 0 {
		return errors.ConfigInvalid("HISTORY_LIMIT must be positive")
	}
	if config.Data.TTL <= 0 {
		return errors.ConfigInvalid("DATASET_TTL must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
