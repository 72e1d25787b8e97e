package main

import (
	"context"
	"fmt"
	"os"

	"ledger/internal/amqp"
	"ledger/internal/backend"
	"ledger/internal/cli"
	"ledger/internal/log"
	"ledger/internal/worker"

	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "ledger-worker:", err)
		os.Exit(1)
	}
}

func run() error {
	if err := cli.LoadEnvFile(); err != nil {
		return err
	}
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	logger, err := cli.SetupLogger(cfg, log.ComponentWorker)
	if err != nil {
		return err
	}
	logger.Info("Starting ledger-worker")

	ctx, stop := cli.ShutdownContext(context.Background())
	defer stop()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	factory := backend.NewFactory(logger)

	store, closeStore, err := factory.OpenStore(ctx, bcfg)
	if err != nil {
		return err
	}
	defer closeStore()

	sink, err := factory.OpenSink(ctx, bcfg)
	if err != nil {
		return err
	}

	client, closeEvents, err := factory.OpenEvents(ctx, bcfg)
	if err != nil {
		return err
	}
	defer closeEvents()

	w := worker.NewLedgerWorker(store, sink, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.RunCleanup(gctx, cfg.SessionCleanupInterval)
	})
	if client != nil {
		g.Go(func() error {
			return client.Consume(gctx, func(ctx context.Context, msg *amqp.LedgerMessage) error {
				return w.Handle(ctx, msg.Event())
			})
		})
	} else {
		logger.Info("AMQP not configured, only session cleanup will run")
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("worker stopped: %w", err)
	}
	logger.Info("Worker shutdown complete")
	return nil
}
