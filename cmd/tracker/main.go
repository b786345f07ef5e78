package main

import (
	"fmt"
	"os"

	"expensetracker/internal/auth"
	"expensetracker/internal/backend"
	"expensetracker/internal/cli"
	apphttp "expensetracker/internal/http"
	"expensetracker/internal/log"
	"expensetracker/internal/middleware/ratelimit"
	"expensetracker/internal/services"
)

func main() {
	boot := log.New(log.DefaultConfig())
	if err := run(); err != nil {
		boot.Error("Expense tracker exited", log.FieldError, err)
		os.Exit(1)
	}
}

// run returns instead of exiting so deferred cleanup always runs.
func run() error {
	if err := cli.LoadEnvFile(); err != nil {
		return err
	}
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return fmt.Errorf("validate configuration: %w", err)
	}
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	ctx, stop := cli.ShutdownContext(logger)
	defer stop()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return fmt.Errorf("backend configuration: %w", err)
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return fmt.Errorf("initialize %s backend: %w", cfg.DataBackend, err)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	authSvc := auth.NewService(res.Store, auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL), auth.Options{
		BcryptCost: cfg.BcryptCost,
		CacheSize:  cfg.UserCacheSize,
		CacheTTL:   cfg.UserCacheTTL,
		Logger:     logger,
	})
	txSvc := services.NewTransactionService(res.Store, res.Publisher, services.WithLogger(logger))

	srv := apphttp.NewServer(apphttp.Config{
		Addr: ":" + cfg.Port,
		RateLimit: ratelimit.Config{
			Requests: cfg.RateLimitRequests,
			Window:   cfg.RateLimitWindow,
		},
		SecureCookies: cfg.SecureCookies,
		Logger:        logger,
	}, txSvc, authSvc, res.Store)

	logger.Info("Starting expense tracker", "port", cfg.Port, "backend", cfg.DataBackend, "events", cfg.AMQPEnabled())
	if err := cli.Serve(ctx, srv, cfg.ShutdownTimeout); err != nil {
		return fmt.Errorf("server on port %s: %w", cfg.Port, err)
	}
	logger.Info("Server stopped gracefully")
	return nil
}
