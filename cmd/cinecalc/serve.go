package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/urfave/cli/v2"

	"cinecalc/internal/backend"
	appcli "cinecalc/internal/cli"
	apphttp "cinecalc/internal/http"
	applog "cinecalc/internal/log"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve the JSON API",
		Action: func(c *cli.Context) error {
			cfg, logger, err := bootstrap(c)
			if err != nil {
				return err
			}

			ctx, cancel := appcli.NotifyShutdown(c.Context, logger)
			defer cancel()

			bcfg, err := backend.FromAppConfig(cfg)
			if err != nil {
				return err
			}
			res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
			if err != nil {
				return err
			}

			srv := apphttp.NewServer(apphttp.Config{
				Addr:               cfg.Addr(),
				AllowedOrigins:     cfg.AllowedOrigins,
				RateLimitPerMinute: cfg.RateLimitPerMinute,
				IdempotencyTTL:     cfg.IdempotencyTTL,
				Logger:             logger,
			}, res.Service)

			errCh := make(chan error, 1)
			go func() {
				logger.Info("Starting cinecalc server", "port", cfg.Port, "backend", cfg.DataBackend)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case <-ctx.Done():
			case err := <-errCh:
				if err != nil {
					logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
					_ = res.Cleanup()
					return err
				}
			}

			return appcli.Shutdown(logger, shutdownTimeout, func(ctx context.Context) error {
				return errors.Join(srv.Shutdown(ctx), res.Cleanup())
			})
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply database migrations and exit",
		Action: func(c *cli.Context) error {
			cfg, logger, err := bootstrap(c)
			if err != nil {
				return err
			}

			bcfg, err := backend.FromAppConfig(cfg)
			if err != nil {
				return err
			}
			if bcfg.Type == backend.MemoryBackend {
				logger.Info("Memory backend has no schema, nothing to migrate")
				return nil
			}
			// Events are irrelevant here.
			bcfg.AMQPURL = ""

			res, err := backend.NewFactory(logger).CreateBackend(c.Context, bcfg)
			if err != nil {
				return err
			}
			logger.Info("Migrations applied", "backend", bcfg.Type)
			return res.Cleanup()
		},
	}
}
