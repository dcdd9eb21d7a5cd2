package main

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ledger/internal/app"
	"github.com/dvloznov/finance-ledger/internal/config"
	"github.com/google/subcommands"
)

type forecastCmd struct {
	from civil.Date
	to   civil.Date
}

func (*forecastCmd) Name() string     { return "forecast" }
func (*forecastCmd) Synopsis() string { return "list confirmed and planned rows over a period" }
func (*forecastCmd) Usage() string {
	return `cli forecast [-from YYYY-MM-DD] [-to YYYY-MM-DD]

  Defaults to the current calendar month. Transfers are listed but not
  counted in the totals.
`
}

func (c *forecastCmd) SetFlags(f *flag.FlagSet) {
	dateVar(f, &c.from, "from", "First day of the period.")
	dateVar(f, &c.to, "to", "Last day of the period.")
}

func (c *forecastCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	e := envOf(args)
	return e.withApp(ctx, func(ctx context.Context, cfg *config.Config, a *app.App) error {
		from, to := c.from, c.to
		if from.IsZero() {
			now := civil.DateOf(time.Now())
			from = civil.Date{Year: now.Year, Month: now.Month, Day: 1}
		}
		if to.IsZero() {
			to = civil.DateOf(from.In(time.UTC).AddDate(0, 1, -1))
		}

		view, err := a.Ledger.Forecast(ctx, from, to)
		if err != nil {
			return err
		}

		cur := cfg.Ledger.Currency
		tw := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "DATE\tSTATUS\tKIND\tAMOUNT\tDESCRIPTION")
		for _, row := range view.Transactions {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", row.Date, row.Status, row.Kind, formatMoney(row.Amount, cur), row.Description)
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		fmt.Fprintf(e.stdout, "\nConfirmed: +%s -%s\n", formatMoney(view.Confirmed.Income, cur), formatMoney(view.Confirmed.Expense, cur))
		fmt.Fprintf(e.stdout, "Planned:   +%s -%s\n", formatMoney(view.Projected.Income, cur), formatMoney(view.Projected.Expense, cur))
		fmt.Fprintf(e.stdout, "Net:       %s\n", formatMoney(view.Confirmed.Net().Add(view.Projected.Net()), cur))
		return nil
	})
}
