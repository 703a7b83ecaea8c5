package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"allocation-tracker/internal/adapters"
	"allocation-tracker/internal/amqp"
	"allocation-tracker/internal/cli"
	apphttp "allocation-tracker/internal/http"
	"allocation-tracker/internal/metrics"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web tracker",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := cli.SignalContext(cmd.Context())
		defer stop()

		h, err := cli.OpenLedger(ctx, appConfig, logger)
		if err != nil {
			return err
		}
		defer h.Close()

		m := metrics.New()
		if err := m.RegisterLedger(h.Service); err != nil {
			return err
		}
		h.Service.Subscribe(m)

		if appConfig.AMQPURL != "" {
			client, err := amqp.NewClient(appConfig.AMQPURL, appConfig.AMQPExchange, appConfig.AMQPQueue)
			if err != nil {
				// the tracker works without the export pipeline
				logger.Warn("AMQP unavailable, ledger events disabled", "error", err)
			} else {
				defer client.Close()
				h.Service.Subscribe(adapters.NewLedgerEventPublisher(client, logger))
				logger.Info("Publishing ledger events", "exchange", appConfig.AMQPExchange)
			}
		}

		addr := serveAddr
		if addr == "" {
			addr = ":" + appConfig.Port
		}
		srv, err := apphttp.NewServer(addr, h.Service, apphttp.Options{
			Logger:             logger,
			Metrics:            m,
			CacheName:          appConfig.CachePrefix + "-" + appConfig.CacheVersion,
			RateLimitPerMinute: appConfig.RateLimitPerMinute,
		})
		if err != nil {
			return err
		}
		srv.MaxHeaderBytes = 1 << 16

		errCh := make(chan error, 1)
		go func() {
			logger.Info("Starting allocation tracker", "addr", addr, "backend", appConfig.DataBackend)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
			return err
		}
		logger.Info("Server stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default \":$PORT\").")
}
