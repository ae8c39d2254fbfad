package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/backtest"
	"github.com/etnz/backtest/renderer"
	"github.com/google/subcommands"
)

type calendarCmd struct {
	rebalance string
}

func (*calendarCmd) Name() string     { return "calendar" }
func (*calendarCmd) Synopsis() string { return "display the trading calendar and its key dates" }
func (*calendarCmd) Usage() string {
	return `btest calendar [-rebalance <mode>]

  Loads the calendar reference assets and displays, for every year, the first
  and last trading days of the year and of each quarter, and the rebalancing
  dates of the mode.
`
}

func (c *calendarCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.rebalance, "rebalance", "", "Rebalancing mode: quarterly, yearly or none. Defaults to the configuration")
}

func (c *calendarCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	log := newLogger()
	cfg, err := loadConfig(log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitFailure
	}
	mode := cfg.RebalanceMode()
	if c.rebalance != "" {
		var recovered bool
		if mode, recovered = backtest.ParseRebalanceMode(c.rebalance); recovered {
			fmt.Fprintf(os.Stderr, "Error: unknown rebalancing mode %q\n", c.rebalance)
			return subcommands.ExitUsageError
		}
	}

	sim, err := backtest.New(cfg, backtest.WithLogger(log))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := sim.Init(ctx, newSource(cfg, log)); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading prices: %v\n", err)
		return subcommands.ExitFailure
	}

	printMarkdown(renderer.CalendarMarkdown(sim.Calendar(), mode))
	return subcommands.ExitSuccess
}
