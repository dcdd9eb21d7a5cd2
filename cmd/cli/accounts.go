package main

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ledger/internal/app"
	"github.com/dvloznov/finance-ledger/internal/config"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

type addAccountCmd struct {
	name     string
	typ      string
	currency string
}

func (*addAccountCmd) Name() string     { return "add-account" }
func (*addAccountCmd) Synopsis() string { return "create a bank account with a zero balance" }
func (*addAccountCmd) Usage() string {
	return `cli add-account -name <name> [-type CHECKING|SAVINGS|INVESTMENT|WALLET] [-currency <code>]

  Creates an account and prints its id. Use adjust to set an opening balance.
`
}

func (c *addAccountCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Account name.")
	f.StringVar(&c.typ, "type", string(domain.AccountChecking), "Account type.")
	f.StringVar(&c.currency, "currency", "", "ISO currency code. Defaults to ledger.currency.")
}

func (c *addAccountCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	e := envOf(args)
	return e.withApp(ctx, func(ctx context.Context, cfg *config.Config, a *app.App) error {
		currency := c.currency
		if currency == "" {
			currency = cfg.Ledger.Currency
		}
		acc, err := a.Ledger.CreateAccount(ctx, c.name, domain.AccountType(c.typ), currency)
		if err != nil {
			return err
		}
		fmt.Fprintln(e.stdout, acc.ID)
		return nil
	})
}

type addCategoryCmd struct {
	name string
	kind string
}

func (*addCategoryCmd) Name() string     { return "add-category" }
func (*addCategoryCmd) Synopsis() string { return "create a category, or print the id of an existing one" }
func (*addCategoryCmd) Usage() string {
	return `cli add-category -name <name> -kind INCOME|EXPENSE|TRANSFER
`
}

func (c *addCategoryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Category name.")
	f.StringVar(&c.kind, "kind", string(domain.KindExpense), "Category kind.")
}

func (c *addCategoryCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	e := envOf(args)
	return e.withApp(ctx, func(ctx context.Context, _ *config.Config, a *app.App) error {
		cat, err := a.Ledger.EnsureCategory(ctx, c.name, domain.TransactionKind(c.kind))
		if err != nil {
			return err
		}
		fmt.Fprintln(e.stdout, cat.ID)
		return nil
	})
}

type adjustCmd struct {
	account string
	balance decimal.Decimal
	date    civil.Date
}

func (*adjustCmd) Name() string     { return "adjust" }
func (*adjustCmd) Synopsis() string { return "set an account balance by booking the difference" }
func (*adjustCmd) Usage() string {
	return `cli adjust -account <id> -balance <amount> [-date YYYY-MM-DD]

  Books a confirmed adjustment row for the difference between the current and
  the requested balance and prints its id. Prints nothing when they match.
`
}

func (c *adjustCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "Account id.")
	decimalVar(f, &c.balance, "balance", "Target balance.")
	dateVar(f, &c.date, "date", "Booking date (defaults to today).")
}

func (c *adjustCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	e := envOf(args)
	return e.withApp(ctx, func(ctx context.Context, _ *config.Config, a *app.App) error {
		if c.account == "" {
			return required("-account")
		}
		adj, err := a.Ledger.AdjustAccountBalance(ctx, c.account, c.balance, c.date)
		if err != nil {
			return err
		}
		if adj != nil {
			fmt.Fprintln(e.stdout, adj.ID)
		}
		return nil
	})
}

type balancesCmd struct{}

func (*balancesCmd) Name() string             { return "balances" }
func (*balancesCmd) Synopsis() string         { return "list accounts and their balances" }
func (*balancesCmd) Usage() string            { return "cli balances\n" }
func (*balancesCmd) SetFlags(f *flag.FlagSet) {}

func (c *balancesCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	e := envOf(args)
	return e.withApp(ctx, func(ctx context.Context, _ *config.Config, a *app.App) error {
		accounts, err := a.Ledger.Balances(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tTYPE\tBALANCE\tID")
		for _, acc := range accounts {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", acc.Name, acc.Type, formatMoney(acc.Balance, acc.Currency), acc.ID)
		}
		return tw.Flush()
	})
}
