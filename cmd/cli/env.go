package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/civil"
	"github.com/Rhymond/go-money"
	"github.com/dvloznov/finance-ledger/internal/app"
	"github.com/dvloznov/finance-ledger/internal/config"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/dvloznov/finance-ledger/internal/logger"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

// env is handed to every command through Commander.Execute.
type env struct {
	configPath string
	stdout     io.Writer
	stderr     io.Writer
}

func envOf(args []interface{}) *env {
	return args[0].(*env)
}

var errUsage = errors.New("usage")

// withApp loads configuration, opens the ledger and runs fn. Errors wrapping
// errUsage map to ExitUsageError.
func (e *env) withApp(ctx context.Context, fn func(ctx context.Context, cfg *config.Config, a *app.App) error) subcommands.ExitStatus {
	cfg, err := config.Load(e.configPath)
	if err != nil {
		fmt.Fprintln(e.stderr, "Error:", err)
		return subcommands.ExitFailure
	}

	// logs go to stderr so stdout stays parseable
	log := logger.ConfigureWriter(e.stderr, logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	ctx = logger.WithContext(ctx, log)

	a, err := app.Open(ctx, cfg, log)
	if err != nil {
		fmt.Fprintln(e.stderr, "Error:", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if err := fn(ctx, cfg, a); err != nil {
		fmt.Fprintln(e.stderr, "Error:", err)
		if errors.Is(err, errUsage) || errors.Is(err, ledger.ErrValidation) {
			return subcommands.ExitUsageError
		}
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func required(names ...string) error {
	return fmt.Errorf("%w: %v required", errUsage, names)
}

// decimalValue is a flag.Value holding an exact amount.
type decimalValue struct{ d *decimal.Decimal }

func (v decimalValue) String() string {
	if v.d == nil {
		return "0"
	}
	return v.d.String()
}

func (v decimalValue) Set(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("invalid amount %q", s)
	}
	*v.d = d
	return nil
}

func decimalVar(f *flag.FlagSet, p *decimal.Decimal, name, usage string) {
	f.Var(decimalValue{p}, name, usage)
}

// dateValue is a flag.Value holding a YYYY-MM-DD date.
type dateValue struct{ d *civil.Date }

func (v dateValue) String() string {
	if v.d == nil || v.d.IsZero() {
		return ""
	}
	return v.d.String()
}

func (v dateValue) Set(s string) error {
	d, err := civil.ParseDate(s)
	if err != nil {
		return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	*v.d = d
	return nil
}

func dateVar(f *flag.FlagSet, p *civil.Date, name, usage string) {
	f.Var(dateValue{p}, name, usage)
}

func orToday(d civil.Date) civil.Date {
	if d.IsZero() {
		return civil.DateOf(time.Now())
	}
	return d
}

// formatMoney renders amount in the currency's conventional notation.
func formatMoney(amount decimal.Decimal, currency string) string {
	// money.New never returns a nil currency, unknown codes get a plain format
	cur := money.New(0, currency).Currency()
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}
