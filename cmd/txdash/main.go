package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"txdash/internal/amqp"
	"txdash/internal/backend"
	"txdash/internal/cli"
	apphttp "txdash/internal/http"
	applog "txdash/internal/log"
	"txdash/internal/middleware/security"
	"txdash/internal/services"
	"txdash/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger.Logger)

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	store := cli.InitBackend(startupCtx, logger.Logger, cfg)

	cacheCfg, err := backend.CacheConfigFromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid report cache configuration", "error", err)
		os.Exit(1)
	}
	caches, err := backend.NewFactory(logger.Logger).CreateReportCaches(startupCtx, cacheCfg)
	if err != nil {
		logger.Error("Failed to initialize report cache", "error", err, "cache", cfg.ReportCache)
		os.Exit(1)
	}
	caches.Manager.StartCleanup(10 * time.Minute)

	reports := services.NewReportService(store.Store, caches.Caches, cfg.StoreTimeout)

	// Dataset events are optional: without a broker each replica only
	// invalidates its own cache.
	var amqpClient *amqp.Client
	if cfg.AMQPEnabled() {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without dataset events", "error", err)
			amqpClient = nil
		} else {
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange)
		}
	} else {
		logger.Info("AMQP disabled - report caches are invalidated locally only")
	}

	policy, err := services.ParseSeedPolicy(cfg.SeedPolicy)
	if err != nil {
		logger.Error("Invalid seed policy", "error", err)
		os.Exit(1)
	}
	seedOpts := services.SeedOptions{
		Policy:      policy,
		Strict:      cfg.SeedStrict,
		Invalidator: reports,
	}
	invalidation := worker.NewInvalidationWorker(reports)
	if amqpClient != nil {
		seedOpts.Publisher = invalidation.Publisher(amqpClient)
	}
	seeder := services.NewSeedService(store.Store, cli.SeedSource(cfg), seedOpts)

	srv := apphttp.NewServer(":"+cfg.Port, reports, seeder, store.Store, apphttp.Options{
		Logger:                  logger,
		InitializeRatePerMinute: cfg.InitializeRatePerMinute,
		AllowedOrigins:          security.ParseOrigins(cfg.CORSAllowedOrigins),
	})
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		caches.Manager.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", "error", err)
			}
		}
		if caches.Cleanup != nil {
			if err := caches.Cleanup(); err != nil {
				logger.Warn("Report cache close error", "error", err)
			}
		}
		if store.Cleanup != nil {
			if err := store.Cleanup(); err != nil {
				logger.Warn("Record store close error", "error", err)
			}
		}
	})

	if amqpClient != nil {
		eventLogger := logger.WithComponent(applog.ComponentAMQP)
		go func() {
			eventLogger.Info("Consuming dataset events", "exchange", cfg.AMQPExchange)
			err := amqpClient.ConsumeDatasetEvents(ctx, invalidation.HandleDatasetSeeded)
			if err != nil && !errors.Is(err, context.Canceled) {
				eventLogger.Error("Dataset event consumption stopped", "error", err)
			}
		}()
	}

	logger.Info("Starting txdash server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"report_cache", cfg.ReportCache,
		"seed_policy", policy)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
