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

type addTxCmd struct {
	desc         string
	amount       decimal.Decimal
	date         civil.Date
	kind         string
	account      string
	card         string
	category     string
	tag          string
	installments int
}

func (*addTxCmd) Name() string     { return "add-tx" }
func (*addTxCmd) Synopsis() string { return "record a confirmed income or expense" }
func (*addTxCmd) Usage() string {
	return `cli add-tx -desc <text> -amount <n> -kind INCOME|EXPENSE -category <id>
           (-account <id> | -card <id> [-installments <n>]) [-date YYYY-MM-DD] [-tag <id>]

  Account entries update the balance immediately. Card expenses are split
  into installments and charged to the invoices of consecutive months.
  Prints the id of every row created.
`
}

func (c *addTxCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.desc, "desc", "", "Description.")
	decimalVar(f, &c.amount, "amount", "Amount as a positive magnitude.")
	dateVar(f, &c.date, "date", "Transaction date (defaults to today).")
	f.StringVar(&c.kind, "kind", string(domain.KindExpense), "INCOME or EXPENSE.")
	f.StringVar(&c.account, "account", "", "Target account id.")
	f.StringVar(&c.card, "card", "", "Target credit card id.")
	f.StringVar(&c.category, "category", "", "Category id.")
	f.StringVar(&c.tag, "tag", "", "Optional tag id.")
	f.IntVar(&c.installments, "installments", 1, "Number of installments for card purchases.")
}

func (c *addTxCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	e := envOf(args)
	return e.withApp(ctx, func(ctx context.Context, _ *config.Config, a *app.App) error {
		rows, err := a.Ledger.CreateDirectTransaction(ctx, ledger.DirectInput{
			Description:  c.desc,
			Amount:       c.amount,
			Date:         orToday(c.date),
			Kind:         domain.TransactionKind(c.kind),
			Target:       ledger.Target{AccountID: c.account, CardID: c.card},
			CategoryID:   c.category,
			TagID:        c.tag,
			Installments: c.installments,
		})
		if err != nil {
			return err
		}
		for _, row := range rows {
			fmt.Fprintln(e.stdout, row.ID)
		}
		return nil
	})
}

type deleteTxCmd struct {
	id string
}

func (*deleteTxCmd) Name() string     { return "delete-tx" }
func (*deleteTxCmd) Synopsis() string { return "delete a transaction and revert its effects" }
func (*deleteTxCmd) Usage() string {
	return `cli delete-tx -id <transaction id>

  Reverts the balance or invoice effect of the row. Deleting one transfer leg
  deletes the other; deleting an invoice payment reopens the invoice.
`
}

func (c *deleteTxCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Transaction id.")
}

func (c *deleteTxCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	e := envOf(args)
	return e.withApp(ctx, func(ctx context.Context, _ *config.Config, a *app.App) error {
		if c.id == "" {
			return required("-id")
		}
		return a.Ledger.DeleteTransaction(ctx, c.id)
	})
}

type transferCmd struct {
	from   string
	to     string
	amount decimal.Decimal
	desc   string
	date   civil.Date
}

func (*transferCmd) Name() string     { return "transfer" }
func (*transferCmd) Synopsis() string { return "move money between two accounts" }
func (*transferCmd) Usage() string {
	return `cli transfer -from <account id> -to <account id> -amount <n> [-desc <text>] [-date YYYY-MM-DD]

  Prints the ids of the outgoing and incoming legs.
`
}

func (c *transferCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "Source account id.")
	f.StringVar(&c.to, "to", "", "Destination account id.")
	decimalVar(f, &c.amount, "amount", "Amount to move.")
	f.StringVar(&c.desc, "desc", "Transfer", "Description.")
	dateVar(f, &c.date, "date", "Transfer date (defaults to today).")
}

func (c *transferCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	e := envOf(args)
	return e.withApp(ctx, func(ctx context.Context, _ *config.Config, a *app.App) error {
		out, in, err := a.Ledger.Transfer(ctx, ledger.TransferInput{
			FromAccountID: c.from,
			ToAccountID:   c.to,
			Amount:        c.amount,
			Description:   c.desc,
			Date:          orToday(c.date),
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(e.stdout, out.ID)
		fmt.Fprintln(e.stdout, in.ID)
		return nil
	})
}

type editTxCmd struct {
	id       string
	desc     string
	amount   decimal.Decimal
	date     civil.Date
	kind     string
	category string
	tag      string
}

func (*editTxCmd) Name() string     { return "edit-tx" }
func (*editTxCmd) Synopsis() string { return "edit an income or expense in place" }
func (*editTxCmd) Usage() string {
	return `cli edit-tx -id <transaction id> [-desc <text>] [-amount <n>] [-date YYYY-MM-DD]
           [-kind INCOME|EXPENSE] [-category <id>] [-tag <id>]

  Flags left out keep the current value. Confirmed rows move their balance
  or invoice effect to the new amount. Card installments keep their date.
`
}

func (c *editTxCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Transaction id.")
	f.StringVar(&c.desc, "desc", "", "Description.")
	decimalVar(f, &c.amount, "amount", "Amount as a positive magnitude.")
	dateVar(f, &c.date, "date", "Transaction date.")
	f.StringVar(&c.kind, "kind", "", "INCOME or EXPENSE.")
	f.StringVar(&c.category, "category", "", "Category id.")
	f.StringVar(&c.tag, "tag", "", "Tag id, empty clears it.")
}

func (c *editTxCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	e := envOf(args)
	set := map[string]bool{}
	f.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	return e.withApp(ctx, func(ctx context.Context, _ *config.Config, a *app.App) error {
		if c.id == "" {
			return required("-id")
		}
		cur, err := a.Ledger.Transaction(ctx, c.id)
		if err != nil {
			return err
		}
		in := ledger.UpdateInput{
			Description: cur.Description,
			Amount:      cur.Amount.Abs(),
			Date:        cur.Date,
			Kind:        cur.Kind,
			CategoryID:  cur.CategoryID,
			TagID:       cur.TagID,
		}
		if set["desc"] {
			in.Description = c.desc
		}
		if set["amount"] {
			in.Amount = c.amount
		}
		if set["date"] {
			in.Date = c.date
		}
		if set["kind"] {
			in.Kind = domain.TransactionKind(c.kind)
		}
		if set["category"] {
			in.CategoryID = c.category
		}
		if set["tag"] {
			in.TagID = c.tag
		}
		row, err := a.Ledger.UpdateTransaction(ctx, c.id, in)
		if err != nil {
			return err
		}
		fmt.Fprintln(e.stdout, row.ID)
		return nil
	})
}
