package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path"

	"github.com/etnz/backtest/cmd"
	"github.com/google/subcommands"
	"github.com/joho/godotenv"
)

func main() {
	name := path.Base(os.Args[0])
	cmd.Completion().Complete(name)

	// a .env file is optional.
	_ = godotenv.Load()

	commander := subcommands.NewCommander(flag.CommandLine, name)
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	for _, c := range cmd.Commands {
		commander.Register(c, "")
	}

	flag.Parse()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	status := commander.Execute(ctx)
	stop()
	os.Exit(int(status))
}
