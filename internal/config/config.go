package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	CORS     CORSConfig
	Tax      TaxConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string
	Host string
	Addr string // Combined host:port for convenience
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Path string
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// TaxConfig holds the tax policy settings. These are injected into the
// services at startup; nothing reads them from the environment afterwards.
type TaxConfig struct {
	// LongTermDays is the holding-period threshold in days at or above which
	// a gain classifies as long-term. Jurisdictions vary on the boundary, so
	// it is configurable rather than hardcoded.
	LongTermDays int

	// WashSaleWindowDays is the number of days on either side of a loss sale
	// in which a repurchase disallows the loss.
	WashSaleWindowDays int

	// HarvestTolerancePct is the allowed overshoot, in percent, above the
	// target loss when selecting lots to harvest.
	HarvestTolerancePct int

	// RescanCron is the cron expression for the periodic wash-sale re-scan.
	RescanCron string

	// PriceSyncCron is the cron expression for the market-data price sync.
	PriceSyncCron string
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	longTermDays, err := getEnvInt("LONG_TERM_DAYS", 365)
	if err != nil {
		return nil, err
	}
	washSaleWindowDays, err := getEnvInt("WASH_SALE_WINDOW_DAYS", 30)
	if err != nil {
		return nil, err
	}
	harvestTolerancePct, err := getEnvInt("HARVEST_TOLERANCE_PCT", 10)
	if err != nil {
		return nil, err
	}

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "5001"),
			Host: getEnv("SERVER_HOST", "localhost"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/tax_lot_engine.db"),
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{
				"http://localhost:3000",
				"http://localhost",
			},
		},
		Tax: TaxConfig{
			LongTermDays:        longTermDays,
			WashSaleWindowDays:  washSaleWindowDays,
			HarvestTolerancePct: harvestTolerancePct,
			RescanCron:          getEnv("WASH_SALE_RESCAN_CRON", "0 2 * * *"),
			PriceSyncCron:       getEnv("PRICE_SYNC_CRON", "30 18 * * 1-5"),
		},
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	return config, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return n, nil
}
