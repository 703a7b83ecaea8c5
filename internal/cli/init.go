// Package cli provides initialization shared by cmd/allocation-tracker and
// cmd/allocation-worker.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"allocation-tracker/internal/backend"
	"allocation-tracker/internal/config"
	"allocation-tracker/internal/ledger"
	"allocation-tracker/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration from the environment and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogger builds the process logger from config and installs it as the
// slog default. Output goes to w, normally stderr so that command output on
// stdout stays machine-readable.
func SetupLogger(cfg *config.Config, w io.Writer) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: log.ComponentApp,
		Output:    w,
	})
	log.SetDefault(logger)
	return logger
}

// LedgerHandle bundles a loaded ledger with the store cleanup.
type LedgerHandle struct {
	Service *ledger.Service
	Cleanup backend.CleanupFunc
}

// Close releases the underlying store.
func (h *LedgerHandle) Close() error {
	if h.Cleanup == nil {
		return nil
	}
	return h.Cleanup()
}

// OpenLedger creates the configured store and loads the ledger from it.
func OpenLedger(ctx context.Context, cfg *config.Config, logger *log.Logger) (*LedgerHandle, error) {
	allocs, err := config.LoadAllocations(cfg.AllocationsFile)
	if err != nil {
		return nil, err
	}

	backendCfg, err := backend.FromAppConfig(cfg, ledger.DefaultKey)
	if err != nil {
		return nil, err
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, err
	}

	svc := ledger.NewService(result.Store, ledger.Options{
		Allocations: allocs,
		Policy:      cfg.ZeroPolicy,
		LowPercent:  &cfg.LowPercent,
		SeedHistory: cfg.SeedHistory,
		Location:    cfg.Location(),
		Logger:      logger,
	})
	if err := svc.Load(ctx); err != nil {
		if result.Cleanup != nil {
			_ = result.Cleanup()
		}
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	return &LedgerHandle{Service: svc, Cleanup: result.Cleanup}, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// Confirm asks question on out and reports whether the answer read from in
// starts with y.
func Confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	if _, err := fmt.Fprintf(out, "%s [y/N]: ", question); err != nil {
		return false, err
	}
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}
