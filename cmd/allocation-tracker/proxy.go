package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"allocation-tracker/internal/backend"
	"allocation-tracker/internal/cli"
	"allocation-tracker/internal/metrics"
	"allocation-tracker/internal/offline"
)

var (
	proxyOrigin string
	proxyAddr   string
)

// proxyCmd fronts a running tracker with the offline cache: the shell is
// pre-cached on start and served from cache when the origin is down.
var proxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "Serve a tracker through the offline cache",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		origin, err := url.Parse(proxyOrigin)
		if err != nil || origin.Scheme == "" || origin.Host == "" {
			return fmt.Errorf("--origin must be an absolute URL, got %q", proxyOrigin)
		}

		ctx, stop := cli.SignalContext(cmd.Context())
		defer stop()

		backendCfg, err := backend.FromAppConfig(appConfig)
		if err != nil {
			return err
		}
		cache, err := backend.NewFactory(logger).CreateCacheStorage(ctx, backendCfg)
		if err != nil {
			return err
		}
		if cache.Cleanup != nil {
			defer cache.Cleanup()
		}

		m := metrics.New()
		policy := offline.DefaultPolicy(origin)
		policy.NetworkOnly = offline.DefaultNetworkOnly
		w, err := offline.New(cache.Storage, &http.Client{}, offline.Config{
			Prefix:  appConfig.CachePrefix,
			Version: appConfig.CacheVersion,
			Origin:  origin,
			Policy:  &policy,
			Logger:  logger,
			Metrics: m,
		})
		if err != nil {
			return err
		}

		var reg offline.Registration
		if err := reg.Register(ctx, w); err != nil {
			return fmt.Errorf("install offline cache: %w", err)
		}
		logger.Info("Offline cache active", "cache", w.CacheName(), "origin", origin.String())

		mux := http.NewServeMux()
		mux.Handle("GET /_proxy/metrics", m.Handler())
		mux.Handle("/", &reg)
		srv := &http.Server{
			Addr:              proxyAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("Starting offline proxy", "addr", proxyAddr)
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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(proxyCmd)
	proxyCmd.Flags().StringVar(&proxyOrigin, "origin", "http://localhost:8000", "Base URL of the tracker to front.")
	proxyCmd.Flags().StringVar(&proxyAddr, "addr", ":8080", "Listen address.")
}
