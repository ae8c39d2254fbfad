package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/backtest/renderer"
	"github.com/google/subcommands"
)

type runsCmd struct{}

func (*runsCmd) Name() string     { return "runs" }
func (*runsCmd) Synopsis() string { return "list the saved runs" }
func (*runsCmd) Usage() string {
	return `btest runs

  Lists the runs saved with 'btest run -save', most recent first.
`
}

func (*runsCmd) SetFlags(f *flag.FlagSet) {}

func (*runsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	db, err := openStore(ctx, newLogger())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		return subcommands.ExitFailure
	}
	defer db.Close()

	runs, err := db.Runs(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing runs: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(renderer.RunsMarkdown(runs))
	return subcommands.ExitSuccess
}

type showCmd struct{}

func (*showCmd) Name() string     { return "show" }
func (*showCmd) Synopsis() string { return "display a saved run" }
func (*showCmd) Usage() string {
	return `btest show <id>

  Displays the configuration, yearly values and trades of a saved run.
  Any unambiguous prefix of the run id is accepted.
`
}

func (*showCmd) SetFlags(f *flag.FlagSet) {}

func (*showCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: show requires exactly one run id")
		return subcommands.ExitUsageError
	}
	db, err := openStore(ctx, newLogger())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		return subcommands.ExitFailure
	}
	defer db.Close()

	run, err := db.Run(ctx, f.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	values, err := db.Values(ctx, run)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	trades, err := db.Trades(ctx, run)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	rebalancings, err := db.Rebalancings(ctx, run)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	printMarkdown(renderer.RunMarkdown(run, values, trades, rebalancings))
	return subcommands.ExitSuccess
}

type deleteCmd struct{}

func (*deleteCmd) Name() string     { return "delete" }
func (*deleteCmd) Synopsis() string { return "delete a saved run" }
func (*deleteCmd) Usage() string {
	return `btest delete <id>

  Deletes a saved run. Any unambiguous prefix of the run id is accepted.
`
}

func (*deleteCmd) SetFlags(f *flag.FlagSet) {}

func (*deleteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: delete requires exactly one run id")
		return subcommands.ExitUsageError
	}
	db, err := openStore(ctx, newLogger())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		return subcommands.ExitFailure
	}
	defer db.Close()

	run, err := db.Run(ctx, f.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := db.Delete(ctx, run); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Deleted run %s\n", run.ID)
	return subcommands.ExitSuccess
}
