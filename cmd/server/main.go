// Package main is the entry point for the frontier service.
// It serves efficient frontier and maximum Sharpe ratio computations over HTTP.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/frontier/internal/config"
	"github.com/aristath/frontier/internal/modules/batch"
	"github.com/aristath/frontier/internal/modules/frontier"
	frontierhandlers "github.com/aristath/frontier/internal/modules/frontier/handlers"
	"github.com/aristath/frontier/internal/modules/marketdata"
	"github.com/aristath/frontier/internal/server"
	"github.com/aristath/frontier/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting frontier service")

	defaults := cfg.DefaultParams()
	service := frontier.NewService(
		frontier.NewSampler(log),
		frontier.NewOptimizer(cfg.OptimizerSettings(), log),
		log,
	)
	runner := batch.NewRunner(service, cfg.BatchConcurrency, log)
	handler := frontierhandlers.NewHandler(service, runner, marketdata.NewBuilder(log), defaults, log)

	log.Info().
		Int("sample_count", defaults.SampleCount).
		Str("interval", string(defaults.Interval)).
		Float64("min_weight", defaults.Bounds.Min).
		Float64("max_weight", defaults.Bounds.Max).
		Float64("risk_free_rate", defaults.RiskFreeRateAnnual).
		Int("batch_concurrency", cfg.BatchConcurrency).
		Msg("Frontier defaults loaded")

	srv := server.New(server.Config{
		Port:    cfg.Port,
		Log:     log,
		DevMode: cfg.DevMode,
		Handler: handler,
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
