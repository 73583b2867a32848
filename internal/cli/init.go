// Package cli provides common CLI initialization utilities.
// This package consolidates repeated initialization patterns across
// cmd/txdash and cmd/txdash-seed.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"txdash/internal/backend"
	"txdash/internal/config"
	applog "txdash/internal/log"
	"txdash/internal/seed"
)

// SetupLogger initializes structured logging at the given level.
// Returns the configured logger and sets it as the default logger.
func SetupLogger(level string) *applog.Logger {
	cfg := applog.DefaultConfig()
	cfg.Level = applog.ParseLevel(level)
	logger := applog.New(cfg)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *slog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// InitBackend builds the configured record store.
// Returns the store or exits the process on failure.
func InitBackend(ctx context.Context, logger *slog.Logger, cfg *config.Config) *backend.BackendResult {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize record store", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	return res
}

// SeedSource picks the local seed file when configured, the HTTP source otherwise.
func SeedSource(cfg *config.Config) seed.Source {
	if cfg.SeedFile != "" {
		return seed.FileSource{Path: cfg.SeedFile}
	}
	return seed.NewHTTPSource(cfg.SeedURL, cfg.SeedTimeout)
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that is cancelled on SIGINT or SIGTERM, and a channel
// closed once cleanup has finished or the timeout has passed.
func GracefulShutdown(logger *slog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received", "signal", sig.String())

		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is done.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
