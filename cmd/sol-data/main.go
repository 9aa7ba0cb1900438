package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/google/subcommands"

	"sol-data/internal/app"
	"sol-data/internal/slogx"
)

func init() {
	slog.SetDefault(slogx.NewDefault("info"))
}

func main() {
	a, err := InitializeApp()
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slogx.NewDefault(a.Config.LogLevel))

	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&fetchCmd{app: a}, "pipeline")
	subcommands.Register(&convertCmd{app: a}, "pipeline")
	subcommands.Register(&syncCmd{app: a}, "pipeline")
	subcommands.Register(&inspectCmd{app: a}, "series")
	subcommands.Register(&verifyCmd{app: a}, "series")
	subcommands.Register(&exportCmd{app: a}, "series")

	flag.Parse()
	ctx, stop := app.SignalContext()
	status := subcommands.Execute(ctx)
	stop()
	os.Exit(int(status))
}
