package source

import (
	"archive/zip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"sol-data/internal/model"
)

const klineRows = `1597125600000,2.85000000,2.85000000,2.85000000,2.850,12.5,1597125600999,35.6,3,1,2.85,0
1597125601000,2.8510,2.86,2.85,2.86,0.0,1597125601999,0,0,0,0,0
1597125602000,2.86,2.86,2.86,3,1,1597125602999,0,0,0,0,0
`

func readAll(t *testing.T, next func() (model.Tick, error)) ([]model.Tick, error) {
	t.Helper()
	var out []model.Tick
	for {
		tk, err := next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, tk)
	}
}

func TestReader_ParsesKlines(t *testing.T) {
	r := NewReader(strings.NewReader(klineRows), "a.csv", TimeUnitAuto)
	ticks, err := readAll(t, r.Next)
	require.NoError(t, err)
	require.Len(t, ticks, 3)

	require.Equal(t, int64(1597125600000), ticks[0].TimeMs)
	require.True(t, ticks[0].Close.Equal(decimal.RequireFromString("2.85")))
	require.True(t, ticks[0].Volume.Equal(decimal.RequireFromString("12.5")))
	require.Equal(t, "a.csv", ticks[0].Source)
	require.Equal(t, int64(1), ticks[0].Line)

	require.True(t, ticks[2].Close.Equal(decimal.NewFromInt(3)))
	require.Equal(t, int64(3), ticks[2].Line)
}

func TestReader_SkipsHeader(t *testing.T) {
	in := "open_time,open,high,low,close,volume\n" + "1000,1,1,1,1.5,2\n"
	ticks, err := readAll(t, NewReader(strings.NewReader(in), "h.csv", TimeUnitAuto).Next)
	require.NoError(t, err)
	require.Len(t, ticks, 1)
	require.Equal(t, int64(2), ticks[0].Line)
}

func TestReader_HeaderWithBOM(t *testing.T) {
	in := "\ufeffOpen time,Open,High,Low,Close,Volume\n1000,1,1,1,1.5,2\n"
	ticks, err := readAll(t, NewReader(strings.NewReader(in), "h.csv", TimeUnitAuto).Next)
	require.NoError(t, err)
	require.Len(t, ticks, 1)
}

func TestReader_MalformedFirstRowIsNotHeader(t *testing.T) {
	for _, in := range []string{
		"x1597125600000,2.85,2.85,2.85,2.85,1\n",
		"1597125600000a,2.85,2.85,2.85,2.85,1\n",
		"open_time,2.85,2.85,2.85,2.85,1\n",
	} {
		_, err := readAll(t, NewReader(strings.NewReader(in), "bad.csv", TimeUnitAuto).Next)
		require.ErrorIs(t, err, model.ErrMalformedRow, in)
		var re *model.RowError
		require.ErrorAs(t, err, &re)
		require.Equal(t, int64(1), re.Line)
	}
}

func TestReader_MinimalColumns(t *testing.T) {
	ticks, err := readAll(t, NewReader(strings.NewReader("1000,0,0,0,1.25\n"), "m.csv", TimeUnitAuto).Next)
	require.NoError(t, err)
	require.Len(t, ticks, 1)
	require.True(t, ticks[0].Volume.IsZero())
}

func TestReader_Microseconds(t *testing.T) {
	in := "1735689600000000,1,1,1,190.5,1\n1735689601000000,1,1,1,190.6,1\n"
	ticks, err := readAll(t, NewReader(strings.NewReader(in), "us.csv", TimeUnitAuto).Next)
	require.NoError(t, err)
	require.Equal(t, int64(1735689600000), ticks[0].TimeMs)

	ticks, err = readAll(t, NewReader(strings.NewReader("1735689600000,1,1,1,1,1\n"), "us.csv", TimeUnitMicros).Next)
	require.NoError(t, err)
	require.Equal(t, int64(1735689600), ticks[0].TimeMs)
}

func TestReader_MalformedRows(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"negative time", "1000,1,1,1,1\n-5,1,1,1,1\n"},
		{"float time", "1000.5,1,1,1,1\n"},
		{"bad price", "1000,1,1,1,abc\n"},
		{"empty price", "1000,1,1,1,\n"},
		{"bad volume", "1000,1,1,1,1,x\n"},
		{"too few columns", "1000,1,1\n"},
		{"time overflow int64", "99999999999999999999,1,1,1,1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readAll(t, NewReader(strings.NewReader(tt.in), "bad.csv", TimeUnitAuto).Next)
			require.ErrorIs(t, err, model.ErrMalformedRow)
			var re *model.RowError
			require.ErrorAs(t, err, &re)
			require.Equal(t, "bad.csv", re.Source)
		})
	}
}

func TestReader_OutOfOrder(t *testing.T) {
	in := "2000,1,1,1,1\n2000,1,1,1,1.1\n1000,1,1,1,1\n"
	ticks, err := readAll(t, NewReader(strings.NewReader(in), "o.csv", TimeUnitAuto).Next)
	require.ErrorIs(t, err, model.ErrOrderViolation)
	require.Len(t, ticks, 2, "equal open times pass through to the encoder")
	var re *model.RowError
	require.ErrorAs(t, err, &re)
	require.Equal(t, int64(3), re.Line)
}

func TestParseTimeUnit(t *testing.T) {
	u, err := ParseTimeUnit("")
	require.NoError(t, err)
	require.Equal(t, TimeUnitAuto, u)
	u, err = ParseTimeUnit("US")
	require.NoError(t, err)
	require.Equal(t, TimeUnitMicros, u)
	_, err = ParseTimeUnit("ns")
	require.Error(t, err)
}

func writeZip(t *testing.T, path string, members map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, body := range members {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = io.WriteString(w, body)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func TestListFilesAndMultiReader(t *testing.T) {
	root := t.TempDir()
	monthly := filepath.Join(root, "monthly")
	daily := filepath.Join(root, "daily")
	require.NoError(t, os.MkdirAll(monthly, 0755))
	require.NoError(t, os.MkdirAll(daily, 0755))

	writeZip(t, filepath.Join(monthly, "SOLUSDT-1s-2020-08.zip"), map[string]string{
		"SOLUSDT-1s-2020-08.csv": "1000,1,1,1,1.0\n2000,1,1,1,2.0\n",
	})
	require.NoError(t, os.WriteFile(filepath.Join(monthly, "solusdt-1s-2020-09.csv"), []byte("3000,1,1,1,3.0\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(monthly, "SOLUSDT-1s-2020-09.CHECKSUM"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(daily, "SOLUSDT-1s-2020-10-01.csv"), []byte("4000,1,1,1,4.0\n"), 0644))

	files, err := ListFiles(monthly, filepath.Join(root, "missing"), daily)
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(monthly, "SOLUSDT-1s-2020-08.zip"),
		filepath.Join(monthly, "solusdt-1s-2020-09.csv"),
		filepath.Join(daily, "SOLUSDT-1s-2020-10-01.csv"),
	}, files)

	var opened []string
	mr := NewMultiReader(files, TimeUnitAuto)
	mr.OnOpen = func(name string) { opened = append(opened, filepath.Base(name)) }
	defer mr.Close()

	ticks, err := readAll(t, mr.Next)
	require.NoError(t, err)
	require.Len(t, ticks, 4)
	for i, tk := range ticks {
		require.Equal(t, int64(i+1)*1000, tk.TimeMs)
	}
	require.Len(t, opened, 3)
	require.Contains(t, opened[0], "#SOLUSDT-1s-2020-08.csv")
}

func TestMultiReader_OrderAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.csv")
	b := filepath.Join(dir, "b.csv")
	require.NoError(t, os.WriteFile(a, []byte("5000,1,1,1,1\n"), 0644))
	require.NoError(t, os.WriteFile(b, []byte("4000,1,1,1,1\n"), 0644))

	mr := NewMultiReader([]string{a, b}, TimeUnitAuto)
	defer mr.Close()
	_, err := readAll(t, mr.Next)
	require.ErrorIs(t, err, model.ErrOrderViolation)
	var re *model.RowError
	require.ErrorAs(t, err, &re)
	require.Equal(t, b, re.Source)
}

func TestListFiles_MidMonthStart(t *testing.T) {
	root := t.TempDir()
	monthly := filepath.Join(root, "monthly")
	daily := filepath.Join(root, "daily")
	require.NoError(t, os.MkdirAll(monthly, 0755))
	require.NoError(t, os.MkdirAll(daily, 0755))
	for _, name := range []string{
		"SOLUSDT-1s-2020-09.zip", "SOLUSDT-1s-2020-10.zip",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(monthly, name), nil, 0644))
	}
	for _, name := range []string{
		"SOLUSDT-1s-2020-11-01.zip", "SOLUSDT-1s-2020-08-31.zip", "SOLUSDT-1s-2020-08-11.zip",
		"SOLUSDT-1s-2020-10-30.zip", // fetched again after the progress file was lost
	} {
		require.NoError(t, os.WriteFile(filepath.Join(daily, name), nil, 0644))
	}

	files, err := ListFiles(monthly, daily)
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(daily, "SOLUSDT-1s-2020-08-11.zip"),
		filepath.Join(daily, "SOLUSDT-1s-2020-08-31.zip"),
		filepath.Join(monthly, "SOLUSDT-1s-2020-09.zip"),
		filepath.Join(monthly, "SOLUSDT-1s-2020-10.zip"),
		filepath.Join(daily, "SOLUSDT-1s-2020-11-01.zip"),
	}, files)
}

func TestMonthKey(t *testing.T) {
	m, ok := monthKey("solusdt-1s-2020-08-11")
	require.True(t, ok)
	require.Equal(t, "solusdt-1s-2020-08", m)

	_, ok = monthKey("solusdt-1s-2020-08")
	require.False(t, ok)
	_, ok = monthKey("2020-08-11")
	require.False(t, ok)
}

func TestListFiles_Empty(t *testing.T) {
	_, err := ListFiles(t.TempDir())
	require.Error(t, err)
}
