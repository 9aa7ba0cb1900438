package fetch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func labels(jobs []Job) []string {
	out := make([]string, len(jobs))
	for i, j := range jobs {
		out[i] = j.Period + ":" + j.Label()
	}
	return out
}

func TestPlanJobs_FromListing(t *testing.T) {
	now := time.Date(2020, 11, 4, 15, 0, 0, 0, time.UTC)
	jobs := PlanJobs(date("2020-08-11"), time.Time{}, now)

	want := []string{}
	for d := 11; d <= 31; d++ {
		want = append(want, "daily:"+date("2020-08-01").AddDate(0, 0, d-1).Format("2006-01-02"))
	}
	want = append(want, "monthly:2020-09", "monthly:2020-10", "daily:2020-11-01", "daily:2020-11-02", "daily:2020-11-03")
	require.Equal(t, want, labels(jobs))
}

func TestPlanJobs_WithProgress(t *testing.T) {
	now := time.Date(2020, 11, 4, 0, 0, 0, 0, time.UTC)

	jobs := PlanJobs(date("2020-08-11"), date("2020-10-31"), now)
	require.Equal(t, []string{"daily:2020-11-01", "daily:2020-11-02", "daily:2020-11-03"}, labels(jobs))

	// half-fetched month continues day by day, never overlapping with a monthly archive
	jobs = PlanJobs(date("2020-08-11"), date("2020-10-29"), now)
	require.Equal(t, []string{
		"daily:2020-10-30", "daily:2020-10-31",
		"daily:2020-11-01", "daily:2020-11-02", "daily:2020-11-03",
	}, labels(jobs))

	require.Empty(t, PlanJobs(date("2020-08-11"), date("2020-11-03"), now))
}

func TestPlanJobs_MonthEndsYesterday(t *testing.T) {
	now := time.Date(2021, 3, 1, 8, 0, 0, 0, time.UTC)
	jobs := PlanJobs(date("2021-02-01"), time.Time{}, now)
	require.Equal(t, []string{"monthly:2021-02"}, labels(jobs))
	require.Equal(t, date("2021-02-28"), jobs[0].End())
}

func TestTarget_Layout(t *testing.T) {
	tg := Target{Market: "spot", Symbol: "SOLUSDT", Interval: "1s"}
	j := Job{Period: Monthly, Date: date("2020-09-01")}
	require.Equal(t, "spot/SOLUSDT/1s", tg.Key())
	require.Equal(t, "SOLUSDT-1s-2020-09.zip", tg.ArchiveName(j))
	require.Equal(t,
		"https://data.binance.vision/data/spot/monthly/klines/SOLUSDT/1s/SOLUSDT-1s-2020-09.zip",
		tg.URL("https://data.binance.vision", j))

	um := Target{Market: "futures/um", Symbol: "SOLUSDT", Interval: "1m"}
	d := Job{Period: Daily, Date: date("2024-01-05")}
	require.Equal(t,
		"http://x/data/futures/um/daily/klines/SOLUSDT/1m/SOLUSDT-1m-2024-01-05.zip",
		um.URL("http://x", d))
}

func TestWatermark(t *testing.T) {
	wm := newWatermark(4)
	require.False(t, wm.mark(2))
	require.False(t, wm.mark(1))
	require.True(t, wm.mark(0))
	require.Equal(t, 3, wm.next)
	require.True(t, wm.mark(3))
	require.Equal(t, 4, wm.next)
}
