package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"ledgerfusion/internal/amqp"
	"ledgerfusion/internal/cli"
	"ledgerfusion/internal/report"
	"ledgerfusion/internal/storage"
	"ledgerfusion/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting ledger-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	store := cli.OpenMonthStore(logger, cfg.DataDir)

	charts, err := report.NewPNGChartRenderer(cfg.ReportDir)
	if err != nil {
		logger.Error("Failed to initialize chart renderer", "error", err, "dir", cfg.ReportDir)
		os.Exit(1)
	}
	exporter, err := report.NewExporter(store, report.NewRenderer(charts), cfg.ReportDir)
	if err != nil {
		logger.Error("Failed to initialize report exporter", "error", err, "dir", cfg.ReportDir)
		os.Exit(1)
	}

	// The broker is optional: without it the worker still runs the
	// periodic stale pass.
	var consume func(context.Context, func(*amqp.ReportRefreshMessage) error) error
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		consume = amqpClient.ConsumeReportRefresh
		logger.Info("AMQP consumer initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - running the periodic stale pass only")
	}

	db := cli.OpenAuthDB(logger, cfg.AuthDBPath)
	defer db.Close()
	sessions := storage.NewSessionStore(db, cfg.SessionTTL)

	refreshWorker := worker.NewRefreshWorker(store, exporter)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// Catch up on anything that changed while the worker was down.
	if refreshed, err := refreshWorker.ProcessStaleReports(ctx); err != nil {
		logger.Error("Startup stale pass failed", "error", err)
	} else if refreshed > 0 {
		logger.Info("Startup stale pass complete", "refreshed", refreshed)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return refreshWorker.Run(gctx, consume, cfg.RefreshInterval)
	})

	// Expired sessions pile up in the auth database; sweep them hourly.
	g.Go(func() error {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				if purged, err := sessions.PurgeExpired(gctx); err != nil {
					logger.Error("Session purge failed", "error", err)
				} else if purged > 0 {
					logger.Info("Purged expired sessions", "count", purged)
				}
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
