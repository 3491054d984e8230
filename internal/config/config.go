// Package config reads application configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds application configuration
type Config struct {
	DatabasePath         string
	LogLevel             string
	InitialCash          decimal.Decimal
	PriceRefreshSchedule string
	SnapshotSchedule     string
	Port                 int
	DevMode              bool
	AllowFractionalSells bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	initialCash, err := getEnvAsDecimal("INITIAL_CASH", decimal.NewFromInt(10000))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:         getEnvAsInt("PORT", 8080),
		DevMode:      getEnvAsBool("DEV_MODE", false),
		DatabasePath: getEnv("DATABASE_PATH", "./data/papertrader.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		InitialCash:  initialCash,
		// Sell orders are whole shares only unless explicitly enabled.
		AllowFractionalSells: getEnvAsBool("ALLOW_FRACTIONAL_SELLS", false),
		PriceRefreshSchedule: getEnv("PRICE_REFRESH_SCHEDULE", "0 */15 * * * *"),
		SnapshotSchedule:     getEnv("SNAPSHOT_SCHEDULE", "0 30 21 * * MON-FRI"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if !c.InitialCash.IsPositive() {
		return fmt.Errorf("INITIAL_CASH must be positive, got %s", c.InitialCash)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDecimal(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s is not a valid decimal: %w", key, err)
	}
	return d, nil
}
