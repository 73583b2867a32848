// Command txdash-seed loads the transaction dataset into the configured store
// once and exits. It honours the same SEED_* settings as the server's
// /api/initialize endpoint.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"txdash/internal/amqp"
	"txdash/internal/cli"
	"txdash/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger.Logger)

	policyFlag := flag.String("policy", cfg.SeedPolicy, "seed policy: replace, skip-if-populated or append")
	strict := flag.Bool("strict", cfg.SeedStrict, "reject the whole batch when any record is invalid")
	flag.Parse()

	policy, err := services.ParseSeedPolicy(*policyFlag)
	if err != nil {
		logger.Error("Invalid seed policy", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := cli.InitBackend(ctx, logger.Logger, cfg)
	if store.Cleanup != nil {
		defer store.Cleanup()
	}

	opts := services.SeedOptions{Policy: policy, Strict: *strict}
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, running servers will keep stale caches until TTL", "error", err)
		} else {
			defer client.Close()
			opts.Publisher = client
		}
	}

	result, err := services.NewSeedService(store.Store, cli.SeedSource(cfg), opts).Initialize(ctx)
	if err != nil {
		logger.Error("Seeding failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Seeding finished",
		"batch_id", result.BatchID.String(),
		"policy", result.Policy,
		"fetched", result.Fetched,
		"inserted", result.Inserted,
		"skipped", result.Skipped)
}
