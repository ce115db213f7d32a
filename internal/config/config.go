package config

import (
	"os"
	"strconv"

	"mcmcref/domain/core"
)

// Config represents the complete application configuration
type Config struct {
	Store    StoreConfig
	Database DatabaseConfig
	Server   ServerConfig
	Gate     GateConfig
}

// StoreConfig holds corpus root locations
type StoreConfig struct {
	LocalRoot    string
	PackagedRoot string
}

// DatabaseConfig holds the optional conversion-registry connection
type DatabaseConfig struct {
	URL     string
	Enabled bool
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Port string
}

// GateConfig holds quality-gate policy overrides
type GateConfig struct {
	MinChains  int
	DrawBudget int
	MinESSBulk float64
	MaxRhat    float64
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := &Config{
		Store: StoreConfig{
			LocalRoot:    getEnvOrDefault("MCMC_REF_LOCAL_ROOT", ""),
			PackagedRoot: getEnvOrDefault("MCMC_REF_PACKAGED_ROOT", ""),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Server: ServerConfig{
			Port: getEnvOrDefault("PORT", "8080"),
		},
		Gate: GateConfig{
			MinChains:  getEnvIntOrDefault("MCMC_REF_MIN_CHAINS", 4),
			DrawBudget: getEnvIntOrDefault("MCMC_REF_DRAW_BUDGET", 10_000),
			MinESSBulk: getEnvFloatOrDefault("MCMC_REF_MIN_ESS_BULK", 400),
			MaxRhat:    getEnvFloatOrDefault("MCMC_REF_MAX_RHAT", 1.01),
		},
	}
	cfg.Database.Enabled = cfg.Database.URL != ""

	if cfg.Gate.MinChains < 1 {
		return nil, core.NewInvalidConfigurationError("MCMC_REF_MIN_CHAINS", "must be >= 1")
	}
	if cfg.Gate.DrawBudget < 1 {
		return nil, core.NewInvalidConfigurationError("MCMC_REF_DRAW_BUDGET", "must be >= 1")
	}
	return cfg, nil
}

func getEnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvIntOrDefault(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloatOrDefault(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
