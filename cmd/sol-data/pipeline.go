package main

import (
	"context"
	"flag"
	"log/slog"
	"time"

	"github.com/google/subcommands"

	"sol-data/internal/app"
	"sol-data/internal/convert"
	"sol-data/internal/fetch"
	"sol-data/internal/series"
	"sol-data/internal/source"
)

type fetchCmd struct {
	app      *App
	noVerify bool
	workers  int
	start    string
}

func (*fetchCmd) Name() string     { return "fetch" }
func (*fetchCmd) Synopsis() string { return "download kline archives from the data mirror" }
func (*fetchCmd) Usage() string {
	return "fetch [-start 2006-01-02] [-workers n] [-no-verify]\n"
}

func (c *fetchCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.noVerify, "no-verify", false, "skip sha256 check against .CHECKSUM files")
	f.IntVar(&c.workers, "workers", 0, "parallel downloads (default FETCH_WORKERS)")
	f.StringVar(&c.start, "start", "", "first day to fetch (default START_DATE)")
}

func (c *fetchCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	p := app.FetchParams(c.app.Config, !c.noVerify)
	if c.workers > 0 {
		p.Workers = c.workers
	}
	if c.start != "" {
		start, err := time.ParseInLocation("2006-01-02", c.start, time.UTC)
		if err != nil {
			slog.Error("invalid -start", "error", err)
			return subcommands.ExitUsageError
		}
		p.Start = start
	}
	if _, err := fetch.Run(ctx, c.app.Fetch, p); err != nil {
		slog.Error("fetch failed", "error", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type convertCmd struct {
	app        *App
	out        string
	appendMode bool
	rounding   string
	duplicates string
	timeUnit   string
	strict     bool
	fillGaps   bool
}

func (*convertCmd) Name() string     { return "convert" }
func (*convertCmd) Synopsis() string { return "encode kline rows into the binary price series" }
func (*convertCmd) Usage() string {
	return `convert [flags] [dir|file ...]
  Without arguments the monthly then daily kline directories under DATA_DIR are converted.
`
}

func (c *convertCmd) SetFlags(f *flag.FlagSet) {
	cfg := c.app.Config
	f.StringVar(&c.out, "out", cfg.SeriesPath, "output series file")
	f.BoolVar(&c.appendMode, "append", false, "extend the existing series instead of rebuilding it")
	f.StringVar(&c.rounding, "rounding", cfg.Rounding.String(), "half-up | half-even | truncate")
	f.StringVar(&c.duplicates, "duplicates", cfg.Duplicates.String(), "same-second policy: last | first | reject")
	f.StringVar(&c.timeUnit, "time-unit", cfg.TimeUnit.String(), "open time unit: auto | ms | us")
	f.BoolVar(&c.strict, "strict", cfg.Strict, "fail instead of rounding prices with more than 3 decimals")
	f.BoolVar(&c.fillGaps, "fill-gaps", cfg.FillGaps, "repeat the last price for seconds without a row")
}

func (c *convertCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	p := app.ConvertParams(c.app.Config, f.Args(), c.appendMode)
	p.Output = c.out
	p.Options.Strict = c.strict
	p.Options.FillGaps = c.fillGaps

	var err error
	if p.Options.Rounding, err = series.ParseRounding(c.rounding); err != nil {
		slog.Error("invalid -rounding", "error", err)
		return subcommands.ExitUsageError
	}
	if p.Options.Duplicates, err = series.ParseDuplicatePolicy(c.duplicates); err != nil {
		slog.Error("invalid -duplicates", "error", err)
		return subcommands.ExitUsageError
	}
	if p.TimeUnit, err = source.ParseTimeUnit(c.timeUnit); err != nil {
		slog.Error("invalid -time-unit", "error", err)
		return subcommands.ExitUsageError
	}

	if _, err := convert.Run(ctx, p, slog.Default()); err != nil {
		slog.Error("convert failed", "error", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type syncCmd struct {
	app   *App
	daily bool
}

func (*syncCmd) Name() string     { return "sync" }
func (*syncCmd) Synopsis() string { return "fetch new archives, then rebuild the series" }
func (*syncCmd) Usage() string {
	return "sync [-daily]\n"
}

func (c *syncCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.daily, "daily", false, "keep running, syncing every day at SYNC_RUN_HOUR:SYNC_RUN_MINUTE UTC")
}

func (c *syncCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var err error
	if c.daily {
		err = app.RunFlow(ctx, c.app.Config, c.app.Fetch)
	} else {
		err = app.RunSync(ctx, c.app.Config, c.app.Fetch)
	}
	if err != nil {
		slog.Error("sync failed", "error", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
