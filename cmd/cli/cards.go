package main

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"

	"github.com/dvloznov/finance-ledger/internal/app"
	"github.com/dvloznov/finance-ledger/internal/config"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

type addCardCmd struct {
	name    string
	limit   decimal.Decimal
	closing int
	due     int
	account string
}

func (*addCardCmd) Name() string     { return "add-card" }
func (*addCardCmd) Synopsis() string { return "register a credit card" }
func (*addCardCmd) Usage() string {
	return `cli add-card -name <name> -limit <n> -closing <day> -due <day> [-account <id>]
`
}

func (c *addCardCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Card name.")
	decimalVar(f, &c.limit, "limit", "Credit limit.")
	f.IntVar(&c.closing, "closing", 0, "Day of month the invoice closes (1-31).")
	f.IntVar(&c.due, "due", 0, "Day of month the invoice is due (1-31).")
	f.StringVar(&c.account, "account", "", "Default paying account id.")
}

func (c *addCardCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	e := envOf(args)
	return e.withApp(ctx, func(ctx context.Context, _ *config.Config, a *app.App) error {
		card, err := a.Ledger.CreateCard(ctx, domain.CreditCard{
			Name:             c.name,
			Limit:            c.limit,
			ClosingDay:       c.closing,
			DueDay:           c.due,
			DefaultAccountID: c.account,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(e.stdout, card.ID)
		return nil
	})
}

type payInvoiceCmd struct {
	invoice string
	account string
	amount  decimal.Decimal
}

func (*payInvoiceCmd) Name() string     { return "pay-invoice" }
func (*payInvoiceCmd) Synopsis() string { return "pay a card invoice from an account" }
func (*payInvoiceCmd) Usage() string {
	return `cli pay-invoice -invoice <id> -account <id> [-amount <n>]

  Without -amount the full invoice amount is paid. Prints the payment id.
`
}

func (c *payInvoiceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.invoice, "invoice", "", "Invoice id.")
	f.StringVar(&c.account, "account", "", "Paying account id.")
	decimalVar(f, &c.amount, "amount", "Amount paid.")
}

func (c *payInvoiceCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	e := envOf(args)
	return e.withApp(ctx, func(ctx context.Context, _ *config.Config, a *app.App) error {
		if c.invoice == "" || c.account == "" {
			return required("-invoice", "-account")
		}
		amount := c.amount
		if amount.IsZero() {
			inv, err := a.Ledger.Invoice(ctx, c.invoice)
			if err != nil {
				return err
			}
			amount = inv.Amount
		}
		payment, err := a.Ledger.PayInvoice(ctx, c.invoice, c.account, amount)
		if err != nil {
			return err
		}
		fmt.Fprintln(e.stdout, payment.ID)
		return nil
	})
}

type cardCmd struct {
	id string
}

func (*cardCmd) Name() string     { return "card" }
func (*cardCmd) Synopsis() string { return "show a card's invoices and available limit" }
func (*cardCmd) Usage() string    { return "cli card -id <card id>\n" }

func (c *cardCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Card id.")
}

func (c *cardCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	e := envOf(args)
	return e.withApp(ctx, func(ctx context.Context, cfg *config.Config, a *app.App) error {
		if c.id == "" {
			return required("-id")
		}
		sum, err := a.Ledger.CardSummary(ctx, c.id)
		if err != nil {
			return err
		}

		cur := cfg.Ledger.Currency
		fmt.Fprintf(e.stdout, "%s (closes on %d, due on %d)\n", sum.Card.Name, sum.Card.ClosingDay, sum.Card.DueDay)
		fmt.Fprintf(e.stdout, "Limit:     %s\n", formatMoney(sum.Card.Limit, cur))
		fmt.Fprintf(e.stdout, "Used:      %s\n", formatMoney(sum.Used, cur))
		fmt.Fprintf(e.stdout, "Available: %s\n\n", formatMoney(sum.Available, cur))

		tw := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "PERIOD\tAMOUNT\tSTATUS\tID")
		for _, inv := range sum.Invoices {
			fmt.Fprintf(tw, "%02d/%d\t%s\t%s\t%s\n", int(inv.Month), inv.Year, formatMoney(inv.Amount, cur), inv.Status, inv.ID)
		}
		return tw.Flush()
	})
}

type deleteCardCmd struct {
	id string
}

func (*deleteCardCmd) Name() string     { return "delete-card" }
func (*deleteCardCmd) Synopsis() string { return "delete a card with its invoices and charges" }
func (*deleteCardCmd) Usage() string    { return "cli delete-card -id <card id>\n" }

func (c *deleteCardCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Card id.")
}

func (c *deleteCardCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	e := envOf(args)
	return e.withApp(ctx, func(ctx context.Context, _ *config.Config, a *app.App) error {
		if c.id == "" {
			return required("-id")
		}
		return a.Ledger.DeleteCard(ctx, c.id)
	})
}
