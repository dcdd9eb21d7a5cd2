package main

import (
	"context"
	"flag"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ledger/internal/app"
	"github.com/dvloznov/finance-ledger/internal/config"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

type addRecurringCmd struct {
	desc     string
	amount   decimal.Decimal
	kind     string
	category string
	freq     string
	start    civil.Date
	end      civil.Date
}

func (*addRecurringCmd) Name() string     { return "add-recurring" }
func (*addRecurringCmd) Synopsis() string { return "create a recurring template and plan its first occurrence" }
func (*addRecurringCmd) Usage() string {
	return `cli add-recurring -desc <text> -amount <n> -kind INCOME|EXPENSE -category <id>
           -freq DAILY|WEEKLY|MONTHLY|YEARLY -start YYYY-MM-DD [-end YYYY-MM-DD]

  Prints the template id and, when the start date is inside the template
  window, the id of the planned row.
`
}

func (c *addRecurringCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.desc, "desc", "", "Description.")
	decimalVar(f, &c.amount, "amount", "Expected amount.")
	f.StringVar(&c.kind, "kind", string(domain.KindExpense), "INCOME or EXPENSE.")
	f.StringVar(&c.category, "category", "", "Category id.")
	f.StringVar(&c.freq, "freq", string(domain.FrequencyMonthly), "Recurrence frequency.")
	dateVar(f, &c.start, "start", "First occurrence (defaults to today).")
	dateVar(f, &c.end, "end", "Last allowed occurrence date.")
}

func (c *addRecurringCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	e := envOf(args)
	return e.withApp(ctx, func(ctx context.Context, _ *config.Config, a *app.App) error {
		in := ledger.TemplateInput{
			Description: c.desc,
			Amount:      c.amount,
			Kind:        domain.TransactionKind(c.kind),
			CategoryID:  c.category,
			Frequency:   domain.Frequency(c.freq),
			StartDate:   orToday(c.start),
		}
		if !c.end.IsZero() {
			end := c.end
			in.EndDate = &end
		}

		tmpl, planned, err := a.Ledger.CreateRecurringTemplate(ctx, in)
		if err != nil {
			return err
		}
		fmt.Fprintln(e.stdout, tmpl.ID)
		if planned != nil {
			fmt.Fprintln(e.stdout, planned.ID)
		}
		return nil
	})
}

type deleteRecurringCmd struct {
	id string
}

func (*deleteRecurringCmd) Name() string     { return "delete-recurring" }
func (*deleteRecurringCmd) Synopsis() string { return "delete a recurring template and its planned row" }
func (*deleteRecurringCmd) Usage() string {
	return `cli delete-recurring -id <template id>

  Confirmed rows of the series stay in the ledger.
`
}

func (c *deleteRecurringCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Template id.")
}

func (c *deleteRecurringCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	e := envOf(args)
	return e.withApp(ctx, func(ctx context.Context, _ *config.Config, a *app.App) error {
		if c.id == "" {
			return required("-id")
		}
		return a.Ledger.DeleteRecurringTemplate(ctx, c.id)
	})
}

type reconcileCmd struct {
	id      string
	amount  decimal.Decimal
	date    civil.Date
	kind    string
	account string
	card    string
}

func (*reconcileCmd) Name() string     { return "reconcile" }
func (*reconcileCmd) Synopsis() string { return "confirm a planned row with its actual values" }
func (*reconcileCmd) Usage() string {
	return `cli reconcile -id <planned id> -amount <n> (-account <id> | -card <id>) [-kind INCOME|EXPENSE] [-date YYYY-MM-DD]

  Confirms the planned row and prints its id, followed by the id of the next
  planned occurrence when the series continues.
`
}

func (c *reconcileCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Planned transaction id.")
	decimalVar(f, &c.amount, "amount", "Actual amount.")
	dateVar(f, &c.date, "date", "Actual date (defaults to today).")
	f.StringVar(&c.kind, "kind", string(domain.KindExpense), "INCOME or EXPENSE.")
	f.StringVar(&c.account, "account", "", "Account that settled the row.")
	f.StringVar(&c.card, "card", "", "Card that settled the row.")
}

func (c *reconcileCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	e := envOf(args)
	return e.withApp(ctx, func(ctx context.Context, _ *config.Config, a *app.App) error {
		if c.id == "" {
			return required("-id")
		}
		res, err := a.Ledger.Reconcile(ctx, c.id, ledger.ReconcileInput{
			Amount: c.amount,
			Date:   orToday(c.date),
			Target: ledger.Target{AccountID: c.account, CardID: c.card},
			Kind:   domain.TransactionKind(c.kind),
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(e.stdout, res.Confirmed.ID)
		if res.Next != nil {
			fmt.Fprintln(e.stdout, res.Next.ID)
		}
		return nil
	})
}
