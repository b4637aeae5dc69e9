package config

import (
	"testing"

	"github.com/aristath/frontier/internal/modules/frontier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"LOG_LEVEL", "GO_PORT", "DEV_MODE", "BATCH_CONCURRENCY",
		"FRONTIER_SAMPLE_COUNT", "FRONTIER_MIN_WEIGHT", "FRONTIER_MAX_WEIGHT",
		"FRONTIER_RISK_FREE_RATE", "FRONTIER_INTERVAL", "FRONTIER_MAX_ITERATIONS",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8001, cfg.Port)
	assert.False(t, cfg.DevMode)
	assert.Equal(t, 4, cfg.BatchConcurrency)
	assert.Equal(t, 10000, cfg.Frontier.SampleCount)
	assert.Equal(t, 0.0, cfg.Frontier.MinWeight)
	assert.Equal(t, 1.0, cfg.Frontier.MaxWeight)
	assert.Equal(t, 0.02, cfg.Frontier.RiskFreeRate)
	assert.Equal(t, "1d", cfg.Frontier.Interval)
	assert.Equal(t, 1000, cfg.Frontier.MaxIterations)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("GO_PORT", "9100")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("FRONTIER_SAMPLE_COUNT", "500")
	t.Setenv("FRONTIER_MIN_WEIGHT", "0.05")
	t.Setenv("FRONTIER_MAX_WEIGHT", "0.6")
	t.Setenv("FRONTIER_RISK_FREE_RATE", "0.035")
	t.Setenv("FRONTIER_INTERVAL", "1WK")
	t.Setenv("FRONTIER_MAX_ITERATIONS", "250")
	t.Setenv("BATCH_CONCURRENCY", "8")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 9100, cfg.Port)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, 8, cfg.BatchConcurrency)

	params := cfg.DefaultParams()
	assert.Equal(t, frontier.IntervalWeekly, params.Interval)
	assert.Equal(t, 500, params.SampleCount)
	assert.Equal(t, frontier.Bounds{Min: 0.05, Max: 0.6}, params.Bounds)
	assert.Equal(t, 0.035, params.RiskFreeRateAnnual)
	assert.Nil(t, params.Seed)

	assert.Equal(t, 250, cfg.OptimizerSettings().MaxIterations)
}

func TestLoad_IgnoresMalformedValues(t *testing.T) {
	t.Setenv("GO_PORT", "not-a-port")
	t.Setenv("FRONTIER_RISK_FREE_RATE", "two percent")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8001, cfg.Port)
	assert.Equal(t, 0.02, cfg.Frontier.RiskFreeRate)
}

func TestLoad_RejectsInvalidDefaults(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"zero samples", "FRONTIER_SAMPLE_COUNT", "0"},
		{"inverted bounds", "FRONTIER_MIN_WEIGHT", "0.9"},
		{"max above one", "FRONTIER_MAX_WEIGHT", "1.5"},
		{"zero concurrency", "BATCH_CONCURRENCY", "0"},
		{"zero iterations", "FRONTIER_MAX_ITERATIONS", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if tt.key == "FRONTIER_MIN_WEIGHT" {
				t.Setenv("FRONTIER_MAX_WEIGHT", "0.5")
			}

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
