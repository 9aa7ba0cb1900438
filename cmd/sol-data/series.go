package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/subcommands"

	"sol-data/internal/export"
	"sol-data/internal/saver"
	"sol-data/internal/series"
)

// seriesPath returns the first argument or the configured series file.
func seriesPath(a *App, f *flag.FlagSet) string {
	if f.NArg() > 0 {
		return f.Arg(0)
	}
	return a.Config.SeriesPath
}

type inspectCmd struct {
	app *App
	n   int64
}

func (*inspectCmd) Name() string     { return "inspect" }
func (*inspectCmd) Synopsis() string { return "print the first, middle and last records of a series" }
func (*inspectCmd) Usage() string {
	return "inspect [-n 50] [series file]\n"
}

func (c *inspectCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.n, "n", 50, "records per section")
}

func (c *inspectCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	path := seriesPath(c.app, f)
	s, err := series.Open(path)
	if err != nil {
		slog.Error("open series failed", "error", err)
		return subcommands.ExitFailure
	}
	defer s.Close()

	fmt.Printf("%s: %d records\n", path, s.Len())
	sections := []struct {
		title string
		from  int64
	}{
		{"first", 0},
		{"middle", s.Len() / 2},
		{"last", s.Len() - c.n},
	}
	for _, sec := range sections {
		from := max(sec.from, 0)
		fmt.Printf("\n%s %d:\n", sec.title, c.n)
		for i := from; i < min(from+c.n, s.Len()); i++ {
			rec, err := s.At(i)
			if err != nil {
				slog.Error("read failed", "error", err)
				return subcommands.ExitFailure
			}
			fmt.Printf("%10d  %s  %s  %s\n", i, rec, rec.Time().Format(time.DateTime), rec.PriceString())
		}
	}
	return subcommands.ExitSuccess
}

type verifyCmd struct {
	app *App
}

func (*verifyCmd) Name() string     { return "verify" }
func (*verifyCmd) Synopsis() string { return "check record alignment and timestamp order of a series" }
func (*verifyCmd) Usage() string {
	return "verify [series file]\n"
}

func (*verifyCmd) SetFlags(*flag.FlagSet) {}

func (c *verifyCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	path := seriesPath(c.app, f)
	if size, ok, err := series.InterruptedAppend(path); err != nil || ok {
		slog.Error("verify failed: unfinished append, rerun convert -append to recover",
			"path", path, "committed_bytes", size, "error", err)
		return subcommands.ExitFailure
	}
	s, err := series.Open(path)
	if err != nil {
		slog.Error("verify failed", "path", path, "error", err)
		return subcommands.ExitFailure
	}
	defer s.Close()
	n, err := s.Verify()
	if err != nil {
		slog.Error("verify failed", "path", path, "records_ok", n, "error", err)
		return subcommands.ExitFailure
	}
	slog.Info("series ok", "path", path, "records", n)
	return subcommands.ExitSuccess
}

type exportCmd struct {
	app    *App
	format string
	dir    string
	from   string
	to     string
}

func (*exportCmd) Name() string { return "export" }
func (*exportCmd) Synopsis() string {
	return "write the series as per-day csv, json or parquet packets"
}
func (*exportCmd) Usage() string {
	return "export [-format parquet] [-dir d] [-from 2006-01-02] [-to 2006-01-02] [series file]\n"
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.format, "format", "", "csv | json | parquet (default EXPORT_FORMAT)")
	f.StringVar(&c.dir, "dir", c.app.Config.ExportDir(), "output directory")
	f.StringVar(&c.from, "from", "", "first day (inclusive)")
	f.StringVar(&c.to, "to", "", "last day (exclusive)")
}

func (c *exportCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ps := c.app.Saver
	if c.format != "" {
		if ps = saver.NewPacketSaver(c.format); ps == nil {
			slog.Error("invalid -format", "format", c.format, "allowed", "csv, parquet, json")
			return subcommands.ExitUsageError
		}
	}
	p := export.Params{Symbol: c.app.Config.Symbol, Dir: c.dir}
	var err error
	if p.From, err = parseDay(c.from); err != nil {
		slog.Error("invalid -from", "error", err)
		return subcommands.ExitUsageError
	}
	if p.To, err = parseDay(c.to); err != nil {
		slog.Error("invalid -to", "error", err)
		return subcommands.ExitUsageError
	}

	s, err := series.Open(seriesPath(c.app, f))
	if err != nil {
		slog.Error("open series failed", "error", err)
		return subcommands.ExitFailure
	}
	defer s.Close()
	if _, err := export.Run(s, ps, p); err != nil {
		slog.Error("export failed", "error", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation("2006-01-02", s, time.UTC)
}
