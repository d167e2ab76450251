package cli

import (
	"context"
	"errors"
	"testing"
	"time"

	"cinecalc/internal/config"
	applog "cinecalc/internal/log"
)

func TestBootstrap_OverrideWins(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("LOG_FORMAT", "json")

	cfg, logger, err := Bootstrap(func(c *config.Config) { c.Port = "9090" })
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("override ignored, port %q", cfg.Port)
	}
	if logger == nil {
		t.Fatal("expected a logger")
	}
}

func TestBootstrap_InvalidConfig(t *testing.T) {
	t.Setenv("DATA_BACKEND", "memory")
	if _, _, err := Bootstrap(func(c *config.Config) { c.Port = "abc" }); err == nil {
		t.Fatal("expected a validation error")
	}
}

func TestNotifyShutdown_ParentCancel(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())
	ctx, cancel := NotifyShutdown(parent, applog.Discard())
	defer cancel()

	cancelParent()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled with its parent")
	}
}

func TestShutdown(t *testing.T) {
	logger := applog.Discard()

	if err := Shutdown(logger, time.Second, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := Shutdown(logger, 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
