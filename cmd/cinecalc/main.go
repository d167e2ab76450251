package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	appcli "cinecalc/internal/cli"
	"cinecalc/internal/config"
	applog "cinecalc/internal/log"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load .env before flags read their env vars.
	appcli.LoadEnvFile()

	app := &cli.App{
		Name:  "cinecalc",
		Usage: "production budget ledger",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "port", EnvVars: []string{"PORT"}, Usage: "HTTP listen port"},
			&cli.StringFlag{Name: "backend", EnvVars: []string{"DATA_BACKEND"}, Usage: "memory, sqlite or postgres"},
			&cli.StringFlag{Name: "sqlite-path", EnvVars: []string{"SQLITE_DB_PATH"}},
			&cli.StringFlag{Name: "database-url", EnvVars: []string{"DATABASE_URL"}},
			&cli.StringFlag{Name: "amqp-url", EnvVars: []string{"AMQP_URL"}, Usage: "empty disables change events"},
			&cli.StringFlag{Name: "log-level", EnvVars: []string{"LOG_LEVEL"}},
			&cli.StringFlag{Name: "log-format", EnvVars: []string{"LOG_FORMAT"}, Usage: "text, json or tint"},
			&cli.StringFlag{Name: "api-url", EnvVars: []string{"API_BASE_URL"}, Usage: "API base URL for ledger commands"},
		},
		Commands: []*cli.Command{
			serveCommand(),
			workerCommand(),
			migrateCommand(),
			ledgerCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "cinecalc:", err)
		os.Exit(1)
	}
}

// bootstrap loads configuration with the global flags applied on top.
func bootstrap(c *cli.Context) (*config.Config, *applog.Logger, error) {
	return appcli.Bootstrap(func(cfg *config.Config) {
		set := func(flag string, dst *string) {
			if c.IsSet(flag) {
				*dst = c.String(flag)
			}
		}
		set("port", &cfg.Port)
		set("backend", &cfg.DataBackend)
		set("sqlite-path", &cfg.SQLiteDBPath)
		set("database-url", &cfg.DatabaseURL)
		set("amqp-url", &cfg.AMQPURL)
		set("log-level", &cfg.LogLevel)
		set("log-format", &cfg.LogFormat)
		set("api-url", &cfg.APIBaseURL)
	})
}
