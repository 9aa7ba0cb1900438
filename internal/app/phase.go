package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sol-data/internal/convert"
	"sol-data/internal/fetch"
)

// SignalContext returns a context cancelled on SIGINT/SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// RunSync runs fetch → convert once.
func RunSync(ctx context.Context, cfg *Config, client *fetch.Client) error {
	if _, err := fetch.Run(ctx, client, FetchParams(cfg, true)); err != nil {
		return err
	}
	_, err := convert.Run(ctx, ConvertParams(cfg, nil, false), slog.Default())
	return err
}

// RunFlow orchestrates the daily loop: sync → wait until next run → sync, until ctx is done.
// A failed sync is logged and retried at the next scheduled time.
func RunFlow(ctx context.Context, cfg *Config, client *fetch.Client) error {
	for {
		if err := RunSync(ctx, cfg, client); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Error("sync failed", "error", err)
		}

		nextRun := nextSyncRunTime(cfg, time.Now().UTC())
		waitDur := time.Until(nextRun)
		slog.Info("timer waiting", "hours", waitDur.Hours(), "until", nextRun.Format("2006-01-02 15:04"))
		timer := time.NewTimer(waitDur)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			slog.Info("received signal, stopping", "restart_at", nextRun.Format("2006-01-02 15:04"))
			return nil
		}
	}
}

func nextSyncRunTime(cfg *Config, now time.Time) time.Time {
	hour, min := cfg.SyncRunHour, cfg.SyncRunMinute
	targetToday := time.Date(now.Year(), now.Month(), now.Day(), hour, min, 0, 0, time.UTC)
	if now.Before(targetToday) {
		return targetToday
	}
	tomorrow := now.AddDate(0, 0, 1)
	return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), hour, min, 0, 0, time.UTC)
}
