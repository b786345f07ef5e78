package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"expensetracker/internal/amqp"
	"expensetracker/internal/backend"
	"expensetracker/internal/cli"
	"expensetracker/internal/config"
	"expensetracker/internal/log"
	"expensetracker/internal/sheets"
	mem "expensetracker/internal/sheets/memory"
	"expensetracker/internal/worker"
)

func main() {
	boot := log.New(log.DefaultConfig())
	if err := run(); err != nil {
		boot.Error("Mirror worker exited", log.FieldError, err)
		os.Exit(1)
	}
}

func run() error {
	if err := cli.LoadEnvFile(); err != nil {
		return err
	}
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return fmt.Errorf("validate configuration: %w", err)
	}
	logger := cli.SetupLogger(cfg, log.ComponentWorker)
	if !cfg.AMQPEnabled() {
		return errors.New("AMQP_URL is required by the mirror worker")
	}
	if cfg.DataBackend != config.BackendSQLite {
		logger.Warn("Worker reads its own store; memory backend will never see API writes", "backend", cfg.DataBackend)
	}

	ctx, stop := cli.ShutdownContext(logger)
	defer stop()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return fmt.Errorf("backend configuration: %w", err)
	}
	// The worker consumes events; it never publishes them.
	bcfg.AMQPURL = ""
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return fmt.Errorf("initialize backend: %w", err)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	mirror, err := openMirror(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize spreadsheet mirror: %w", err)
	}

	consumer, err := amqp.NewClientWithRetry(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, 5, logger)
	if err != nil {
		return fmt.Errorf("initialize AMQP client: %w", err)
	}
	defer consumer.Close()

	w := worker.NewMirrorWorker(res.Store, mirror, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consumer.ConsumeTransactionEvents(gctx, w.HandleEvent)
	})

	logger.Info("Mirror worker started", "queue", cfg.AMQPQueue, "sheets", cfg.SheetsEnabled())
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("consume events: %w", err)
	}
	logger.Info("Mirror worker shutdown complete")
	return nil
}

// openMirror falls back to an in-process mirror when no spreadsheet is
// configured, so the pipeline can run locally.
func openMirror(ctx context.Context, cfg *config.Config, logger *log.Logger) (sheets.TransactionMirror, error) {
	if !cfg.SheetsEnabled() {
		logger.Info("Google Sheets disabled - mirroring in memory")
		return mem.New(), nil
	}
	client, err := cli.OpenGoogleMirror(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return client, nil
}
