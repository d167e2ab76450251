// Package cli holds the start-up steps shared by the cinecalc subcommands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"cinecalc/internal/config"
	applog "cinecalc/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// Bootstrap loads the .env file and the configuration, lets override adjust
// it (flags win over the environment), validates the result and installs
// the default logger.
func Bootstrap(override func(*config.Config)) (*config.Config, *applog.Logger, error) {
	LoadEnvFile()

	cfg := config.Load()
	if override != nil {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger, err := applog.Setup(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, fmt.Errorf("setup logger: %w", err)
	}
	return cfg, logger, nil
}

// NotifyShutdown returns a context that is cancelled on SIGINT or SIGTERM,
// or when parent is done.
func NotifyShutdown(parent context.Context, logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// Shutdown runs cleanup with a deadline of timeout.
func Shutdown(logger *applog.Logger, timeout time.Duration, cleanup func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := cleanup(ctx)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn("Shutdown timeout reached", "timeout", timeout)
	case err != nil:
		logger.Error("Shutdown error", applog.FieldError, err)
	default:
		logger.Info("Shutdown complete")
	}
	return err
}
