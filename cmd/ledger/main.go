package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"ledger/internal/backend"
	"ledger/internal/cache"
	"ledger/internal/cli"
	apphttp "ledger/internal/http"
	"ledger/internal/log"
	"ledger/internal/services"

	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout    = 30 * time.Second
	cacheSweepInterval = time.Minute
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "ledger:", err)
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
	logger, err := cli.SetupLogger(cfg, log.ComponentApp)
	if err != nil {
		return err
	}

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

	// Events are best-effort: a broker outage at startup disables them
	// rather than keeping the API down.
	var events services.EventPublisher
	client, closeEvents, err := factory.OpenEvents(ctx, bcfg)
	switch {
	case err != nil:
		logger.WarnContext(ctx, "Continuing without ledger events", log.FieldError, err.Error())
	case client != nil:
		events = client
		defer closeEvents()
	}

	identity, err := services.NewIdentityService(store, events, services.IdentityOptions{
		TokenTTL:   cfg.TokenTTL,
		BcryptCost: cfg.BcryptCost,
	})
	if err != nil {
		return err
	}
	categories := services.NewCategoryService(store, cfg.CategoryCacheTTL)
	svc := apphttp.Services{
		Identity:     identity,
		Budgets:      services.NewBudgetService(store, events),
		Transactions: services.NewTransactionService(store, events),
		Categories:   categories,
		Analytics:    services.NewAnalyticsService(store),
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		Logger:             logger,
		AllowedOrigins:     cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Ready:              store,
		Caches:             map[string]apphttp.CacheStats{"categories": categories.Cache()},
	})
	caches := cache.NewManager(categories.Cache())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.InfoContext(gctx, "Starting ledger server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"events_enabled", events != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return caches.Run(gctx, cacheSweepInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.InfoContext(context.Background(), "Shutting down ledger server", log.FieldOperation, log.OpShutdown)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}
