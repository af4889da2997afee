package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"ledgerfusion/internal/amqp"
	"ledgerfusion/internal/auth"
	"ledgerfusion/internal/cli"
	apphttp "ledgerfusion/internal/http"
	"ledgerfusion/internal/mirror"
	gmirror "ledgerfusion/internal/mirror/google"
	"ledgerfusion/internal/report"
	"ledgerfusion/internal/services"
	"ledgerfusion/internal/storage"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	store := cli.OpenMonthStore(logger, cfg.DataDir)

	// Charts are written next to the markdown reports so the server can
	// serve both from the same directory.
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

	db := cli.OpenAuthDB(logger, cfg.AuthDBPath)
	defer db.Close()
	sessions := storage.NewSessionStore(db, cfg.SessionTTL)

	policy, err := auth.NewPolicy(cfg.ReportPassword, cfg.ReportPasswords)
	if err != nil {
		logger.Error("Failed to build access policy", "error", err)
		os.Exit(1)
	}

	// AMQP is optional: without a broker, report refreshes run inline.
	var publisher services.RefreshPublisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		publisher = amqpClient
		logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - report refreshes run inline")
	}

	// Google Sheets mirroring is optional as well.
	var txMirror mirror.TransactionMirror
	if cfg.MirrorSpreadsheetID != "" {
		gm, err := gmirror.New(context.Background(), cfg.MirrorSpreadsheetID, cfg.MirrorSheetName)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets mirror", "error", err)
			os.Exit(1)
		}
		txMirror = gm
		logger.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.MirrorSpreadsheetID)
	} else {
		logger.Info("Google Sheets mirror disabled - no MIRROR_SPREADSHEET_ID provided")
	}

	records := services.NewRecordService(store, txMirror, publisher, exporter)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:     ":" + cfg.Port,
		Records:  records,
		Store:    store,
		Exporter: exporter,
		Policy:   policy,
		Sessions: sessions,
		APIKey:   cfg.APIKey,
	})

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting ledger server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
