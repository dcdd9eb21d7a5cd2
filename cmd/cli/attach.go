package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dvloznov/finance-ledger/internal/app"
	"github.com/dvloznov/finance-ledger/internal/config"
	"github.com/google/subcommands"
)

type attachCmd struct {
	tx   string
	file string
	name string
}

func (*attachCmd) Name() string     { return "attach" }
func (*attachCmd) Synopsis() string { return "upload a file as a transaction attachment" }
func (*attachCmd) Usage() string {
	return `cli attach -tx <transaction id> -file <path> [-name <object name>]

  Requires attachments.bucket. Attachments are removed together with their
  transaction. Prints the gs:// URI of the stored object.
`
}

func (c *attachCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.tx, "tx", "", "Transaction id.")
	f.StringVar(&c.file, "file", "", "Path to the local file.")
	f.StringVar(&c.name, "name", "", "Object name (defaults to the file name).")
}

func (c *attachCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	e := envOf(args)
	return e.withApp(ctx, func(ctx context.Context, _ *config.Config, a *app.App) error {
		if c.tx == "" || c.file == "" {
			return required("-tx", "-file")
		}
		if _, err := a.Ledger.Transaction(ctx, c.tx); err != nil {
			return err
		}

		f, err := os.Open(c.file)
		if err != nil {
			return fmt.Errorf("open file: %w", err)
		}
		defer f.Close()

		name := c.name
		if name == "" {
			name = filepath.Base(c.file)
		}
		uri, err := a.Attachments.Upload(ctx, c.tx, name, f)
		if err != nil {
			return err
		}
		fmt.Fprintln(e.stdout, uri)
		return nil
	})
}
