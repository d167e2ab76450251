package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"cinecalc/internal/client"
	"cinecalc/internal/core"
	"cinecalc/internal/ledger"
	applog "cinecalc/internal/log"
)

func ledgerCommand() *cli.Command {
	valueFlags := []cli.Flag{
		&cli.StringFlag{Name: "name", Aliases: []string{"n"}},
		&cli.StringFlag{Name: "price", Aliases: []string{"p"}, Usage: "accepts 12.34 or 12,34"},
		&cli.StringFlag{Name: "markup", Aliases: []string{"m"}, Usage: "percentage, 0 to 100"},
	}

	return &cli.Command{
		Name:  "ledger",
		Usage: "view and edit the ledger through a running server",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "print every expense and the total",
				Action: withLedger(func(c *cli.Context, ctl *ledger.Controller) error {
					return printLedger(os.Stdout, ctl)
				}),
			},
			{
				Name:  "add",
				Usage: "create an expense",
				Flags: valueFlags,
				Action: withLedger(func(c *cli.Context, ctl *ledger.Controller) error {
					id := ctl.AddDraft()
					if err := applyEdits(c, ctl, id); err != nil {
						return err
					}
					if err := ctl.Commit(c.Context, id); err != nil {
						return err
					}
					return printLedger(os.Stdout, ctl)
				}),
			},
			{
				Name:      "set",
				Usage:     "change an expense",
				ArgsUsage: "<id>",
				Flags:     valueFlags,
				Action: withLedger(func(c *cli.Context, ctl *ledger.Controller) error {
					id, err := rowArg(c)
					if err != nil {
						return err
					}
					if err := applyEdits(c, ctl, id); err != nil {
						return err
					}
					if err := ctl.Commit(c.Context, id); err != nil {
						return err
					}
					return printLedger(os.Stdout, ctl)
				}),
			},
			{
				Name:      "rm",
				Usage:     "delete an expense",
				ArgsUsage: "<id>",
				Action: withLedger(func(c *cli.Context, ctl *ledger.Controller) error {
					id, err := rowArg(c)
					if err != nil {
						return err
					}
					if err := ctl.Remove(c.Context, id); err != nil {
						return err
					}
					return printLedger(os.Stdout, ctl)
				}),
			},
			{
				Name:  "total",
				Usage: "print the total",
				Action: withLedger(func(c *cli.Context, ctl *ledger.Controller) error {
					_, err := fmt.Fprintln(os.Stdout, core.FormatEuros(ctl.Total()))
					return err
				}),
			},
		},
	}
}

// withLedger loads the ledger from the API before running fn.
func withLedger(fn func(*cli.Context, *ledger.Controller) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, logger, err := bootstrap(c)
		if err != nil {
			return err
		}
		api := client.New(client.Config{BaseURL: cfg.APIBaseURL, Timeout: cfg.ClientTimeout})
		ctl := ledger.NewController(api, ledger.WithLogger(logger))
		if err := ctl.Load(c.Context); err != nil {
			logger.Error("Failed to load ledger", applog.FieldError, err, "api", cfg.APIBaseURL)
			return err
		}
		return fn(c, ctl)
	}
}

func rowArg(c *cli.Context) (ledger.RowID, error) {
	raw := c.Args().First()
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid expense id %q", raw)
	}
	return ledger.RowID(id), nil
}

func applyEdits(c *cli.Context, ctl *ledger.Controller, id ledger.RowID) error {
	edits := []struct {
		flag  string
		field ledger.Field
	}{
		{"name", ledger.FieldName},
		{"price", ledger.FieldPrice},
		{"markup", ledger.FieldMarkup},
	}
	for _, e := range edits {
		if !c.IsSet(e.flag) {
			continue
		}
		if err := ctl.Edit(id, e.field, c.String(e.flag)); err != nil {
			return fmt.Errorf("edit %s: %w", e.field, err)
		}
	}
	return nil
}

func printLedger(w io.Writer, ctl *ledger.Controller) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "ID\tName\tPrice\tMarkup %\tTotal\t")
	for _, r := range ctl.Rows() {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t\n",
			r.ID,
			r.Name,
			core.FormatEuros(core.ParseAmountOrZero(r.Price)),
			r.Markup,
			core.FormatEuros(r.Total))
	}
	fmt.Fprintf(tw, "\tTotal\t\t\t%s\t\n", core.FormatEuros(ctl.Total()))
	return tw.Flush()
}
