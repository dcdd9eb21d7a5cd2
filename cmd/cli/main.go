// Command cli drives the ledger from the shell. Creation commands print the
// ids of the rows they create, one per line.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/google/subcommands"
)

var commands = []subcommands.Command{
	&addAccountCmd{},
	&addCardCmd{},
	&addCategoryCmd{},
	&adjustCmd{},
	&balancesCmd{},
	&addTxCmd{},
	&editTxCmd{},
	&deleteTxCmd{},
	&transferCmd{},
	&addRecurringCmd{},
	&deleteRecurringCmd{},
	&reconcileCmd{},
	&payInvoiceCmd{},
	&cardCmd{},
	&deleteCardCmd{},
	&forecastCmd{},
	&setBudgetCmd{},
	&budgetsCmd{},
	&attachCmd{},
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// run parses args and executes the selected command.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet(path.Base(os.Args[0]), flag.ContinueOnError)
	fs.SetOutput(stderr)
	e := &env{stdout: stdout, stderr: stderr}
	fs.StringVar(&e.configPath, "config", "", "Path to config file (default ./ledger.yaml if present)")
	if err := fs.Parse(args); err != nil {
		return int(subcommands.ExitUsageError)
	}

	commander := subcommands.NewCommander(fs, "cli")
	commander.Output = stdout
	commander.Error = stderr
	commander.Register(commander.HelpCommand(), "help")
	commander.Register(commander.FlagsCommand(), "help")
	commander.Register(commander.CommandsCommand(), "help")
	for _, c := range commands {
		commander.Register(c, "ledger")
	}

	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "Usage: cli [-config FILE] <command> [options]")
		commander.Explain(stderr)
		return int(subcommands.ExitUsageError)
	}
	return int(commander.Execute(ctx, e))
}
