package main

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dvloznov/finance-ledger/internal/app"
	"github.com/dvloznov/finance-ledger/internal/config"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

// parseMonth reads YYYY-MM; an empty value is the current month.
func parseMonth(s string) (time.Month, int, error) {
	if s == "" {
		now := time.Now()
		return now.Month(), now.Year(), nil
	}
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: -month must be YYYY-MM, got %q", errUsage, s)
	}
	return t.Month(), t.Year(), nil
}

type setBudgetCmd struct {
	category string
	amount   decimal.Decimal
	month    string
}

func (*setBudgetCmd) Name() string     { return "set-budget" }
func (*setBudgetCmd) Synopsis() string { return "set the monthly spending limit of a category" }
func (*setBudgetCmd) Usage() string {
	return `cli set-budget -category <id> -amount <n> [-month YYYY-MM]

  Replaces the amount when the category already has a budget for the month.
  Prints the budget id.
`
}

func (c *setBudgetCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.category, "category", "", "Category id.")
	decimalVar(f, &c.amount, "amount", "Spending limit.")
	f.StringVar(&c.month, "month", "", "Budget month (defaults to the current month).")
}

func (c *setBudgetCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	e := envOf(args)
	return e.withApp(ctx, func(ctx context.Context, _ *config.Config, a *app.App) error {
		month, year, err := parseMonth(c.month)
		if err != nil {
			return err
		}
		b, err := a.Ledger.SetBudget(ctx, ledger.BudgetInput{
			CategoryID: c.category,
			Month:      month,
			Year:       year,
			Amount:     c.amount,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(e.stdout, b.ID)
		return nil
	})
}

type budgetsCmd struct {
	month string
}

func (*budgetsCmd) Name() string     { return "budgets" }
func (*budgetsCmd) Synopsis() string { return "compare budgets with the expenses of a month" }
func (*budgetsCmd) Usage() string {
	return `cli budgets [-month YYYY-MM]

  Spent counts confirmed expenses of the category dated in the month; card
  charges count in the month they are due.
`
}

func (c *budgetsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.month, "month", "", "Month to report (defaults to the current month).")
}

func (c *budgetsCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	e := envOf(args)
	return e.withApp(ctx, func(ctx context.Context, cfg *config.Config, a *app.App) error {
		month, year, err := parseMonth(c.month)
		if err != nil {
			return err
		}
		status, err := a.Ledger.Budgets(ctx, month, year)
		if err != nil {
			return err
		}

		cur := cfg.Ledger.Currency
		tw := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CATEGORY\tBUDGET\tSPENT\tREMAINING\tOVER")
		for _, s := range status {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", s.Budget.CategoryID,
				formatMoney(s.Budget.Amount, cur), formatMoney(s.Spent, cur), formatMoney(s.Remaining, cur), s.Over)
		}
		return tw.Flush()
	})
}
