// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/aristath/frontier/internal/modules/frontier"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	LogLevel         string
	Port             int
	DevMode          bool
	BatchConcurrency int
	Frontier         FrontierConfig
}

// FrontierConfig holds the default computation parameters applied when a
// request leaves a field unset.
type FrontierConfig struct {
	SampleCount   int
	MinWeight     float64
	MaxWeight     float64
	RiskFreeRate  float64 // annual, as a fraction
	Interval      string  // 1d, 1wk or 1mo
	MaxIterations int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		Port:             getEnvAsInt("GO_PORT", 8001),
		DevMode:          getEnvAsBool("DEV_MODE", false),
		BatchConcurrency: getEnvAsInt("BATCH_CONCURRENCY", 4),
		Frontier: FrontierConfig{
			SampleCount:   getEnvAsInt("FRONTIER_SAMPLE_COUNT", frontier.DefaultSampleCount),
			MinWeight:     getEnvAsFloat("FRONTIER_MIN_WEIGHT", 0),
			MaxWeight:     getEnvAsFloat("FRONTIER_MAX_WEIGHT", 1),
			RiskFreeRate:  getEnvAsFloat("FRONTIER_RISK_FREE_RATE", 0.02),
			Interval:      getEnv("FRONTIER_INTERVAL", string(frontier.IntervalDaily)),
			MaxIterations: getEnvAsInt("FRONTIER_MAX_ITERATIONS", 1000),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configured defaults describe a usable computation
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.BatchConcurrency <= 0 {
		return fmt.Errorf("BATCH_CONCURRENCY must be positive, got %d", c.BatchConcurrency)
	}
	if c.Frontier.SampleCount <= 0 {
		return fmt.Errorf("FRONTIER_SAMPLE_COUNT must be positive, got %d", c.Frontier.SampleCount)
	}
	if c.Frontier.MaxIterations <= 0 {
		return fmt.Errorf("FRONTIER_MAX_ITERATIONS must be positive, got %d", c.Frontier.MaxIterations)
	}
	if c.Frontier.MinWeight < 0 || c.Frontier.MaxWeight > 1 || c.Frontier.MinWeight > c.Frontier.MaxWeight {
		return fmt.Errorf("invalid default weight bounds [%v, %v]", c.Frontier.MinWeight, c.Frontier.MaxWeight)
	}
	return nil
}

// DefaultParams returns the computation parameters used when a request
// omits them. The seed is left unset so each run draws a fresh one.
func (c *Config) DefaultParams() frontier.Params {
	return frontier.Params{
		Interval:           frontier.ParseInterval(c.Frontier.Interval),
		SampleCount:        c.Frontier.SampleCount,
		Bounds:             frontier.Bounds{Min: c.Frontier.MinWeight, Max: c.Frontier.MaxWeight},
		RiskFreeRateAnnual: c.Frontier.RiskFreeRate,
		Scheme:             frontier.SchemeNormalizedUniform,
	}
}

// OptimizerSettings returns solver limits for the constrained optimizer.
func (c *Config) OptimizerSettings() frontier.OptimizerSettings {
	settings := frontier.DefaultOptimizerSettings()
	settings.MaxIterations = c.Frontier.MaxIterations
	return settings
}

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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
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
