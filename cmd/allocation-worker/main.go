// Command allocation-worker consumes ledger events from AMQP and appends
// them to a Google Sheets spreadsheet.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"allocation-tracker/internal/amqp"
	"allocation-tracker/internal/cli"
	gsheet "allocation-tracker/internal/sheets/google"
	"allocation-tracker/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		// logger not configured yet
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg, os.Stdout)
	logger.Info("Starting allocation-worker")

	if err := cfg.ValidateSheets(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sheetsClient, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(sheetsClient)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := amqpClient.ConsumeLedgerEvents(ctx, syncWorker.HandleLedgerEvent); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
		}
		cancel()
	}()
	go syncWorker.ReportStats(ctx, cfg.SyncInterval)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Shutting down worker...")
	cancel()

	select {
	case <-done:
		synced, failed := syncWorker.Stats()
		logger.Info("Worker shutdown complete", "synced", synced, "failed", failed)
	case <-time.After(30 * time.Second):
		logger.Warn("Shutdown timeout reached")
	}
}
