package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/backtest"
	"github.com/etnz/backtest/date"
	"github.com/etnz/backtest/renderer"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"
)

// runCmd holds the flags for the 'run' subcommand.
type runCmd struct {
	start     string
	finish    string
	rebalance string
	stopLoss  bool
	noStop    bool

	csv   string
	chart string
	html  string
	save  bool
	quiet bool
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "run a backtest and display its report" }
func (*runCmd) Usage() string {
	return `btest run [-start <date>] [-finish <date>] [-rebalance <mode>] [-csv <file>] [-chart <file>] [-html <file>] [-save]

  Runs the configured strategy over the price history and displays the report.
  Dates are resolved to the closest trading day of their month.
`
}

func (c *runCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.start, "start", "", "First day of the simulation, overrides the configuration")
	f.StringVar(&c.finish, "finish", "", "Last day of the simulation, overrides the configuration")
	f.StringVar(&c.rebalance, "rebalance", "", "Rebalancing mode: quarterly, yearly or none, overrides the configuration")
	f.BoolVar(&c.stopLoss, "stop-loss", false, "Enable the stop-loss")
	f.BoolVar(&c.noStop, "no-stop-loss", false, "Disable the stop-loss")
	f.StringVar(&c.csv, "csv", "", "Write the valuation history as CSV to this file")
	f.StringVar(&c.chart, "chart", "", "Draw the valuation history as a PNG chart to this file")
	f.StringVar(&c.html, "html", "", "Write the report as an HTML page to this file")
	f.BoolVar(&c.save, "save", false, "Save the run in the database")
	f.BoolVar(&c.quiet, "q", false, "Do not display the report")
}

// apply overrides the configuration with the flags that were set.
func (c *runCmd) apply(cfg *backtest.Config) error {
	if c.start != "" {
		on, err := date.Parse(c.start)
		if err != nil {
			return fmt.Errorf("invalid start date: %w", err)
		}
		cfg.Start = on
	}
	if c.finish != "" {
		on, err := date.Parse(c.finish)
		if err != nil {
			return fmt.Errorf("invalid finish date: %w", err)
		}
		cfg.Finish = on
	}
	if c.rebalance != "" {
		if _, recovered := backtest.ParseRebalanceMode(c.rebalance); recovered {
			return fmt.Errorf("unknown rebalancing mode %q", c.rebalance)
		}
		cfg.Rebalance = c.rebalance
	}
	if c.stopLoss && c.noStop {
		return fmt.Errorf("-stop-loss and -no-stop-loss are exclusive")
	}
	if c.stopLoss {
		cfg.StopLoss = true
	}
	if c.noStop {
		cfg.StopLoss = false
	}
	return nil
}

func (c *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	log := newLogger()
	cfg, err := loadConfig(log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := c.apply(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	r, err := backtest.Backtest(ctx, cfg, newSource(cfg, log), backtest.WithLogger(log))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running backtest: %v\n", err)
		return subcommands.ExitFailure
	}

	if err := c.output(ctx, r, log); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// output writes every requested rendition of the result.
func (c *runCmd) output(ctx context.Context, r *backtest.Result, log zerolog.Logger) error {
	p, err := backtest.NewPerformance(r)
	if err != nil {
		log.Warn().Err(err).Msg("performance is not available")
	}
	report := renderer.ReportMarkdown(r, p)

	if c.csv != "" {
		f, err := os.Create(c.csv)
		if err != nil {
			return fmt.Errorf("cannot create csv file: %w", err)
		}
		if err := renderer.CSV(f, r); err != nil {
			f.Close()
			return fmt.Errorf("cannot write csv file %q: %w", c.csv, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		log.Info().Str("file", c.csv).Msg("csv written")
	}

	if c.chart != "" {
		png, err := renderer.Chart(r)
		if err != nil {
			return err
		}
		if err := os.WriteFile(c.chart, png, 0644); err != nil {
			return fmt.Errorf("cannot write chart: %w", err)
		}
		log.Info().Str("file", c.chart).Msg("chart written")
	}

	if c.html != "" {
		page, err := renderer.HTML(fmt.Sprintf("Backtest %s to %s", r.Range.From, r.Range.To), report)
		if err != nil {
			return err
		}
		if err := os.WriteFile(c.html, page, 0644); err != nil {
			return fmt.Errorf("cannot write html report: %w", err)
		}
		log.Info().Str("file", c.html).Msg("html report written")
	}

	if c.save {
		db, err := openStore(ctx, log)
		if err != nil {
			return err
		}
		defer db.Close()
		id, err := db.SaveRun(ctx, r)
		if err != nil {
			return err
		}
		fmt.Printf("Saved run %s\n", id)
	}

	if !c.quiet {
		printMarkdown(report)
	}
	return nil
}
