package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"sol-data/internal/series"
	"sol-data/internal/source"
)

// checkEvery is how many rows pass between cancellation checks and progress updates.
const checkEvery = 4096

// Params describes one conversion run.
type Params struct {
	Sources   []string // directories and/or files, converted in this order
	Output    string
	Append    bool // extend Output instead of replacing it
	Options   series.Options
	TimeUnit  source.TimeUnit
	ReportDir string        // where .lastconvert.json goes; empty → no report
	Heartbeat time.Duration // 0 → 30s
}

// Result summarizes a finished run.
type Result struct {
	RunID    string        `json:"run_id"`
	Output   string        `json:"output"`
	Files    int           `json:"files"`
	Stats    series.Stats  `json:"stats"`
	Records  int64         `json:"records"` // total records in the Series after the run
	First    series.Record `json:"first"`
	Last     series.Record `json:"last"`
	Duration time.Duration `json:"duration_ns"`
}

type progress struct {
	mu    sync.Mutex
	file  string
	files int
	ticks int64
}

func (p *progress) open(name string) {
	p.mu.Lock()
	p.file = name
	p.files++
	p.mu.Unlock()
}

func (p *progress) add(n int64) {
	p.mu.Lock()
	p.ticks += n
	p.mu.Unlock()
}

func (p *progress) snapshot() (string, int, int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.file, p.files, p.ticks
}

// Run converts every kline row under p.Sources into the Series at p.Output.
// The Series is only published when every row converted; on any error the output of
// this run is discarded and the previous file (if any) is left untouched.
func Run(ctx context.Context, p Params, logger *slog.Logger) (res Result, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	started := time.Now()
	res = Result{RunID: uuid.NewString(), Output: p.Output}
	logger = logger.With("run_id", res.RunID)

	if p.ReportDir != "" {
		defer func() {
			if werr := writeRunReport(p.ReportDir, res, started, err); werr != nil {
				logger.Warn("could not write run report", "error", werr)
			}
		}()
	}

	files, err := source.ListFiles(p.Sources...)
	if err != nil {
		return res, err
	}
	logger.Info("convert start", "files", len(files), "output", p.Output, "append", p.Append,
		"rounding", p.Options.Rounding, "duplicates", p.Options.Duplicates,
		"strict", p.Options.Strict, "fill_gaps", p.Options.FillGaps)

	var w *series.Writer
	if p.Append {
		w, err = series.OpenAppend(p.Output, p.Options)
	} else {
		w, err = series.Create(p.Output, p.Options)
	}
	if err != nil {
		return res, err
	}
	defer w.Abort()

	prog := &progress{}
	mr := source.NewMultiReader(files, p.TimeUnit)
	mr.OnOpen = func(name string) {
		prog.open(name)
		logger.Debug("reading", "file", name)
	}
	defer mr.Close()

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	interval := p.Heartbeat
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go runHeartbeat(hbCtx, interval, len(files), prog, logger)

	var pending int64
	for {
		if pending == checkEvery {
			prog.add(pending)
			pending = 0
			if err := ctx.Err(); err != nil {
				return res, fmt.Errorf("convert cancelled: %w", err)
			}
		}
		t, err := mr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, err
		}
		if err := w.Encode(t); err != nil {
			return res, fmt.Errorf("%s:%d: %w", t.Source, t.Line, err)
		}
		pending++
	}
	prog.add(pending)

	if err := w.Commit(); err != nil {
		return res, err
	}
	_, res.Files, _ = prog.snapshot()
	res.Stats = w.Stats()
	res.Duration = time.Since(started)

	if err := summarize(&res); err != nil {
		return res, err
	}
	logger.Info("convert done", "records", res.Records, "written", res.Stats.Written,
		"duplicates", res.Stats.Duplicates, "filled", res.Stats.Filled,
		"first", res.First.Time().Format(time.DateTime), "last", res.Last.Time().Format(time.DateTime),
		"took", res.Duration.Round(time.Millisecond))
	return res, nil
}

// summarize fills the Series-wide fields of res from the published file.
func summarize(res *Result) error {
	s, err := series.Open(res.Output)
	if err != nil {
		return err
	}
	defer s.Close()
	res.Records = s.Len()
	if s.Len() == 0 {
		return nil
	}
	if res.First, err = s.At(0); err != nil {
		return err
	}
	res.Last, _, err = s.Last()
	return err
}

func runHeartbeat(ctx context.Context, interval time.Duration, totalFiles int, p *progress, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			file, files, ticks := p.snapshot()
			logger.Info("heartbeat", "file", file, "files_done", files, "files_total", totalFiles, "rows", ticks)
		}
	}
}
