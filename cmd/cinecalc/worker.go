package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"cinecalc/internal/amqp"
	"cinecalc/internal/backend"
	appcli "cinecalc/internal/cli"
	applog "cinecalc/internal/log"
	"cinecalc/internal/sheets"
	gsheet "cinecalc/internal/sheets/google"
	"cinecalc/internal/worker"
)

func workerCommand() *cli.Command {
	return &cli.Command{
		Name:  "worker",
		Usage: "record expense events and refresh the spreadsheet mirror",
		Action: func(c *cli.Context) error {
			cfg, logger, err := bootstrap(c)
			if err != nil {
				return err
			}
			if cfg.AMQPURL == "" {
				return errors.New("worker needs AMQP_URL")
			}
			logger = logger.WithComponent(applog.ComponentWorker)

			ctx, cancel := appcli.NotifyShutdown(c.Context, logger)
			defer cancel()

			bcfg, err := backend.FromAppConfig(cfg)
			if err != nil {
				return err
			}
			// The worker only consumes.
			bcfg.AMQPURL = ""
			res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
			if err != nil {
				return err
			}
			defer res.Cleanup()

			var mirror sheets.LedgerMirror
			if cfg.SheetsEnabled() {
				m, err := gsheet.New(ctx, gsheet.Config{
					SpreadsheetID:      cfg.GoogleSpreadsheetID,
					SheetName:          cfg.GoogleSheetName,
					ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
					ServiceAccountFile: cfg.GoogleServiceAccountFile,
				})
				if err != nil {
					return fmt.Errorf("init google sheets: %w", err)
				}
				mirror = m
			} else {
				logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
			}

			consumer, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
			if err != nil {
				return fmt.Errorf("init amqp: %w", err)
			}
			defer consumer.Close()

			w := worker.NewAuditWorker(res.Store, res.Events, mirror)

			// Catch up on anything written while the worker was down.
			if mirror != nil {
				if err := w.SyncMirror(ctx); err != nil {
					logger.Error("Startup mirror sync failed", applog.FieldError, err)
				}
			}

			logger.Info("Starting cinecalc worker", "queue", cfg.AMQPQueue, "mirror", mirror != nil)
			err = consumer.Consume(ctx, w.HandleEvent)
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("consume events: %w", err)
			}
			logger.Info("Worker shutdown complete")
			return nil
		},
	}
}
