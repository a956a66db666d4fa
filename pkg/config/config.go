// Package config loads runtime configuration from the environment, with
// optional .env overrides for local development.
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	// Application
	AppEnv   string
	LogLevel string

	// Vendor identifies the embedding host: either a vendor key (expanded
	// to https://{key}.onshopfront.com) or a full origin URL.
	Vendor string

	// RequestTimeout bounds correlated requests to the host. Zero means
	// no timeout.
	RequestTimeout time.Duration

	// Simulator
	SimulatorAddr  string
	SimulatorDSN   string
	SimulatorToken string

	// Register context the simulator announces with READY.
	RegisterID string
	OutletID   string
	UserID     string

	// CashoutTenders lists payment-method IDs the simulator accepts
	// cashout against.
	CashoutTenders []string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		Vendor:         getEnv("SHOPFRONT_VENDOR", "demo"),
		RequestTimeout: getDurationEnv("SHOPFRONT_REQUEST_TIMEOUT", 0),

		SimulatorAddr:  getEnv("SIMULATOR_ADDR", "127.0.0.1:8174"),
		SimulatorDSN:   getEnv("SIMULATOR_DSN", ":memory:"),
		SimulatorToken: getEnv("SIMULATOR_TOKEN", "simulator-token"),

		RegisterID: getEnv("SIMULATOR_REGISTER_ID", "register-1"),
		OutletID:   getEnv("SIMULATOR_OUTLET_ID", "outlet-1"),
		UserID:     getEnv("SIMULATOR_USER_ID", "user-1"),

		CashoutTenders: getListEnv("SIMULATOR_CASHOUT_TENDERS", []string{"cash"}),
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	result := []string{}
	current := ""
	for i := 0; i < len(value); i++ {
		if value[i] == ',' {
			if current != "" {
				result = append(result, current)
			}
			current = ""
		} else {
			current += string(value[i])
		}
	}
	if current != "" {
		result = append(result, current)
	}
	return result
}
