// Package config provides configuration management for the burn tracker.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Chain    ChainConfig
	Price    PriceConfig
	Tracking TrackingConfig
	Ingest   IngestConfig
	Cache    CacheConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Postgres PostgresConfig
	Redis    RedisConfig
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// ChainConfig holds the Ethereum indexer feed configuration
type ChainConfig struct {
	RPCURL             string
	TokenContract      string
	BurnAddress        string
	TokenDecimals      int
	StartBlock         int64
	ConfirmationBlocks int64
	MaxBlocksPerScan   int64
}

// PriceConfig holds the price oracle configuration
type PriceConfig struct {
	BaseURL           string
	CoinID            string
	Currency          string
	RequestsPerSecond float64
	RequestTimeout    time.Duration
}

// TrackingConfig holds the fixed tracking window
type TrackingConfig struct {
	// StartDate is the first UTC day counted into cumulative totals.
	StartDate string
}

// IngestConfig holds ingestion worker configuration
type IngestConfig struct {
	PollInterval time.Duration
	MaxRetries   int
}

// CacheConfig holds read-cache configuration
type CacheConfig struct {
	TTL time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file (optional in production)
	if err := godotenv.Load(); err != nil {
		// .env file is optional - environment variables can be set directly
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:           getEnv("POSTGRES_HOST", "localhost"),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "burn_tracker"),
				User:           getEnv("POSTGRES_USER", "tracker"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 50),
			},
			Redis: RedisConfig{
				Host:           getEnv("REDIS_HOST", "localhost"),
				Port:           getEnv("REDIS_PORT", "6379"),
				Password:       getEnv("REDIS_PASSWORD", ""),
				DB:             getEnvAsInt("REDIS_DB", 0),
				MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 20),
			},
		},
		Chain: ChainConfig{
			RPCURL:             getEnv("ETH_RPC_URL", ""),
			TokenContract:      getEnv("UNI_TOKEN_CONTRACT", "0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984"),
			BurnAddress:        getEnv("BURN_ADDRESS", "0x000000000000000000000000000000000000dEaD"),
			TokenDecimals:      getEnvAsInt("UNI_TOKEN_DECIMALS", 18),
			StartBlock:         getEnvAsInt64("CHAIN_START_BLOCK", 0),
			ConfirmationBlocks: getEnvAsInt64("CHAIN_CONFIRMATION_BLOCKS", 12),
			MaxBlocksPerScan:   getEnvAsInt64("CHAIN_MAX_BLOCKS_PER_SCAN", 5000),
		},
		Price: PriceConfig{
			BaseURL:           getEnv("PRICE_API_URL", "https://api.coingecko.com/api/v3"),
			CoinID:            getEnv("PRICE_COIN_ID", "uniswap"),
			Currency:          getEnv("PRICE_CURRENCY", "usd"),
			RequestsPerSecond: getEnvAsFloat("PRICE_REQUESTS_PER_SECOND", 0.5),
			RequestTimeout:    getEnvAsDuration("PRICE_REQUEST_TIMEOUT", 10*time.Second),
		},
		Tracking: TrackingConfig{
			StartDate: getEnv("TRACKING_START_DATE", "2024-01-01"),
		},
		Ingest: IngestConfig{
			PollInterval: getEnvAsDuration("INGEST_POLL_INTERVAL", 5*time.Minute),
			MaxRetries:   getEnvAsInt("INGEST_MAX_RETRIES", 5),
		},
		Cache: CacheConfig{
			TTL: getEnvAsDuration("CACHE_TTL", 20*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if _, err := time.Parse("2006-01-02", config.Tracking.StartDate); err != nil {
		return nil, fmt.Errorf("invalid TRACKING_START_DATE %q: %w", config.Tracking.StartDate, err)
	}

	return config, nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsInt64 gets an environment variable as an int64 with a default value
func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat gets an environment variable as a float64 with a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
