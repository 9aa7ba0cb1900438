package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"sol-data/internal/slogx"
)

// Params describes one fetch run.
type Params struct {
	Target
	BaseURL      string
	DataDir      string
	Start        time.Time
	Now          time.Time // zero → time.Now()
	Workers      int
	Verify       bool // check archives against the mirror's .CHECKSUM files
	ProgressPath string
}

// Summary counts the outcome of a run.
type Summary struct {
	Jobs    int
	Success int
	Missing int // archives the mirror does not have (404)
	Failed  int
	Bytes   int64
	Last    string // progress watermark after the run
}

type jobResult struct {
	index int
	bytes int64
	err   error
}

// Run downloads every archive between p.Start and yesterday that the progress file
// does not already cover. Archives are fetched by p.Workers parallel workers; the
// progress watermark only moves over a gap-free prefix of the plan.
func Run(ctx context.Context, c *Client, p Params) (Summary, error) {
	now := p.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	workers := p.Workers
	if workers < 1 {
		workers = 1
	}
	key := p.Key()
	prog := LoadProgress(p.ProgressPath)
	jobs := PlanJobs(p.Start, prog.Last(key), now)
	sum := Summary{Jobs: len(jobs), Last: prog[key]}
	if len(jobs) == 0 {
		slog.Info("archives up to date, skip", "target", key, "last", prog[key])
		return sum, nil
	}
	slog.Info("jobs to fetch", "target", key, "jobs", len(jobs), "workers", workers,
		"from", jobs[0].Label(), "to", jobs[len(jobs)-1].Label())

	logs := make(chan string, 2048)
	logger := slogx.NewChanLogger(logs)
	var logWg sync.WaitGroup
	logWg.Add(1)
	go func() {
		defer logWg.Done()
		runLogWriter(logs)
	}()
	defer func() {
		close(logs)
		logWg.Wait()
	}()

	pending := make(chan int, len(jobs))
	for i := range jobs {
		pending <- i
	}
	close(pending)

	results := make(chan jobResult, workers)
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := range pending {
				if err := gctx.Err(); err != nil {
					return err
				}
				job := jobs[i]
				url := p.URL(p.BaseURL, job)
				logger.Debug("download start", "archive", p.ArchiveName(job))
				n, err := c.Download(gctx, url, p.Path(p.DataDir, job), p.Verify)
				results <- jobResult{index: i, bytes: n, err: err}
			}
			return nil
		})
	}
	var groupErr error
	go func() {
		groupErr = g.Wait()
		close(results)
	}()

	wm := newWatermark(len(jobs))
	var successList []string
	var failedList []failedEntry
	for r := range results {
		job := jobs[r.index]
		name := p.ArchiveName(job)
		switch {
		case r.err == nil:
			sum.Success++
			sum.Bytes += r.bytes
			successList = append(successList, name)
			logger.Info("fetch ok", "archive", name, "bytes", r.bytes)
			if wm.mark(r.index) {
				prog[key] = jobs[wm.next-1].End().Format("2006-01-02")
				if err := prog.Save(p.ProgressPath); err != nil {
					logger.Warn("progress write error", "error", err)
				}
			}
		case errors.Is(r.err, ErrNotFound):
			sum.Missing++
			failedList = append(failedList, failedEntry{Archive: name, Reason: "no data"})
			logger.Warn("fetch missing", "archive", name)
		default:
			sum.Failed++
			failedList = append(failedList, failedEntry{Archive: name, Reason: r.err.Error()})
			logger.Error("fetch fail", "archive", name, "reason", r.err)
		}
	}
	sum.Last = prog[key]

	if err := writeRunReport(p.DataDir, successList, failedList); err != nil {
		slog.Warn("could not write run report", "error", err)
	}
	slog.Info("fetch done", "success", sum.Success, "missing", sum.Missing, "failed", sum.Failed,
		"bytes", sum.Bytes, "progress", sum.Last)

	if groupErr != nil {
		return sum, fmt.Errorf("fetch interrupted: %w", groupErr)
	}
	if err := ctx.Err(); err != nil {
		return sum, fmt.Errorf("fetch interrupted: %w", err)
	}
	if sum.Failed > 0 {
		return sum, fmt.Errorf("%d archives failed: %s", sum.Failed, joinFailedReasons(failedList))
	}
	return sum, nil
}

func runLogWriter(lines <-chan string) {
	for s := range lines {
		fmt.Fprintln(os.Stderr, s)
	}
}
