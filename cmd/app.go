// Package cmd implements the btest command line application.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/backtest"
	"github.com/etnz/backtest/logger"
	"github.com/etnz/backtest/source"
	"github.com/etnz/backtest/store"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"
)

// Environment variables read when the matching global flag is not set.
const (
	EnvConfig   = "BACKTEST_CONFIG"
	EnvDataDir  = "BACKTEST_DATA_DIR"
	EnvLogLevel = "BACKTEST_LOG_LEVEL"
	EnvDB       = "BACKTEST_DB"
)

const (
	defaultConfig   = "backtest.yaml"
	defaultLogLevel = "warn"
	defaultDB       = "backtest.db"
)

// Commands are the subcommands of btest.
var Commands = []subcommands.Command{
	&runCmd{},
	&calendarCmd{},
	&runsCmd{},
	&showCmd{},
	&deleteCmd{},
	&topicCmd{},
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var (
	configFile = flag.String("config", "", "Path to the YAML configuration (env "+EnvConfig+", default "+defaultConfig+")")
	dataDir    = flag.String("data-dir", "", "Directory of the price files, overrides the configuration (env "+EnvDataDir+")")
	logLevel   = flag.String("log-level", "", "Log level: debug, info, warn or error (env "+EnvLogLevel+", default "+defaultLogLevel+")")
	prettyLog  = flag.Bool("pretty", true, "Human readable logs")
	dbFile     = flag.String("db", "", "Path to the SQLite database of saved runs (env "+EnvDB+", default "+defaultDB+")")
)

// setting returns the flag value, else the environment variable, else the default.
func setting(value, env, def string) string {
	if value != "" {
		return value
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	return def
}

func newLogger() zerolog.Logger {
	return logger.New(logger.Config{
		Level:  setting(*logLevel, EnvLogLevel, defaultLogLevel),
		Pretty: *prettyLog,
	})
}

// loadConfig reads the configuration file.
//
// A missing file is only tolerated when none was explicitly requested: the defaults are used instead.
func loadConfig(log zerolog.Logger) (backtest.Config, error) {
	path := setting(*configFile, EnvConfig, defaultConfig)
	cfg, err := backtest.LoadConfigFile(path)
	explicit := *configFile != "" || os.Getenv(EnvConfig) != ""
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		log.Warn().Str("config", path).Msg("configuration does not exist, using the defaults")
		cfg, err = backtest.DefaultConfig(), nil
	}
	if err != nil {
		return cfg, err
	}
	if dir := setting(*dataDir, EnvDataDir, ""); dir != "" {
		cfg.DataDir = dir
	}
	return cfg, nil
}

// newSource returns the price loader of the configuration.
func newSource(cfg backtest.Config, log zerolog.Logger) *source.Loader {
	return source.New(cfg.DataDir, source.WithLogger(log))
}

// openStore opens the database of saved runs.
func openStore(ctx context.Context, log zerolog.Logger) (*store.Store, error) {
	return store.Open(ctx, setting(*dbFile, EnvDB, defaultDB), store.WithLogger(log))
}

// printMarkdown renders markdown for the terminal, or prints it raw if it cannot.
func printMarkdown(md string) {
	out, err := glamour.Render(md, "auto")
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}
