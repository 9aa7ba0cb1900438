package fetch

import (
	"fmt"
	"path"
	"path/filepath"
	"time"
)

// Archive periods published by the mirror.
const (
	Monthly = "monthly"
	Daily   = "daily"
)

// Job is one archive to download: a whole month or a single day.
type Job struct {
	Period string
	Date   time.Time // first day of the month for Monthly
}

// End returns the last day the archive covers.
func (j Job) End() time.Time {
	if j.Period == Monthly {
		return j.Date.AddDate(0, 1, -1)
	}
	return j.Date
}

// Label is the date part of the archive name: 2006-01 or 2006-01-02.
func (j Job) Label() string {
	if j.Period == Monthly {
		return j.Date.Format("2006-01")
	}
	return j.Date.Format("2006-01-02")
}

// Target names the archive of one market/symbol/interval.
type Target struct {
	Market   string // spot | futures/um | futures/cm
	Symbol   string
	Interval string
}

// Key identifies the target in the progress file.
func (t Target) Key() string {
	return t.Market + "/" + t.Symbol + "/" + t.Interval
}

// ArchiveName returns SOLUSDT-1s-2020-08.zip style names.
func (t Target) ArchiveName(j Job) string {
	return fmt.Sprintf("%s-%s-%s.zip", t.Symbol, t.Interval, j.Label())
}

// URL returns {base}/data/{market}/{period}/klines/{SYMBOL}/{interval}/{archive}.
func (t Target) URL(baseURL string, j Job) string {
	return baseURL + "/" + path.Join("data", t.Market, j.Period, "klines", t.Symbol, t.Interval, t.ArchiveName(j))
}

// Path returns where the archive is stored under dataDir, mirroring the URL layout.
func (t Target) Path(dataDir string, j Job) string {
	return filepath.Join(dataDir, filepath.FromSlash(t.Market), j.Period, "klines", t.Symbol, t.Interval, t.ArchiveName(j))
}

func day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// PlanJobs returns the archives covering start..yesterday, skipping days up to and
// including last (zero → nothing fetched yet). Months fully inside the range come as one
// monthly archive; partial months (the current one, or one already fetched halfway) as
// daily archives, so the monthly and daily trees never overlap.
func PlanJobs(start, last, now time.Time) []Job {
	yesterday := day(now).AddDate(0, 0, -1)
	from := day(start)
	if !last.IsZero() && !day(last).Before(from) {
		from = day(last).AddDate(0, 0, 1)
	}

	var jobs []Job
	for d := from; !d.After(yesterday); {
		monthStart := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
		monthEnd := monthStart.AddDate(0, 1, -1)
		if d.Equal(monthStart) && !monthEnd.After(yesterday) {
			jobs = append(jobs, Job{Period: Monthly, Date: monthStart})
			d = monthEnd.AddDate(0, 0, 1)
			continue
		}
		jobs = append(jobs, Job{Period: Daily, Date: d})
		d = d.AddDate(0, 0, 1)
	}
	return jobs
}
