package series

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"sol-data/internal/model"
)

func readSeries(t *testing.T, path string) []Record {
	t.Helper()
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()
	recs, err := s.Cursor(0, true).ReadAll()
	require.NoError(t, err)
	return recs
}

func TestWriter_CommitPublishes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "sol.dat")
	w, err := Create(path, Options{})
	require.NoError(t, err)
	require.NoError(t, w.Encode(tick(1000, "1.5")))
	require.NoError(t, w.Encode(tick(2000, "1.6")))

	_, err = os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist, "series visible before commit")

	require.NoError(t, w.Commit())
	require.NoError(t, w.Abort(), "abort after commit is a no-op")

	st, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, int64(2*RecordSize), st.Size())
	_, err = os.Stat(path + PartialSuffix)
	require.ErrorIs(t, err, os.ErrNotExist)
	require.Equal(t, []Record{{1, 1500}, {2, 1600}}, readSeries(t, path))
}

func TestWriter_AbortKeepsPreviousSeries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sol.dat")
	require.NoError(t, os.WriteFile(path, recordsBytes(Record{7, 70}), 0644))

	w, err := Create(path, Options{})
	require.NoError(t, err)
	require.NoError(t, w.Encode(tick(1000, "1")))
	require.NoError(t, w.Abort())

	require.Equal(t, []Record{{7, 70}}, readSeries(t, path))
	_, err = os.Stat(path + PartialSuffix)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriter_Append(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sol.dat")
	require.NoError(t, os.WriteFile(path, recordsBytes(Record{10, 100}, Record{11, 110}), 0644))

	w, err := OpenAppend(path, Options{})
	require.NoError(t, err)
	require.NoError(t, w.Encode(tick(12_000, "0.12")))
	require.NoError(t, w.Commit())
	require.Equal(t, []Record{{10, 100}, {11, 110}, {12, 120}}, readSeries(t, path))

	w, err = OpenAppend(path, Options{})
	require.NoError(t, err)
	require.NoError(t, w.Encode(tick(13_000, "0.13")))
	err = w.Encode(tick(5_000, "0.05"))
	require.ErrorIs(t, err, model.ErrOrderViolation)
	require.NoError(t, w.Flush())
	require.NoError(t, w.Abort())
	require.Equal(t, []Record{{10, 100}, {11, 110}, {12, 120}}, readSeries(t, path))
}

func TestWriter_AppendMissingFileCreates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sol.dat")
	w, err := OpenAppend(path, Options{})
	require.NoError(t, err)
	require.NoError(t, w.Encode(tick(1000, "1")))
	require.NoError(t, w.Commit())
	require.Equal(t, []Record{{1, 1000}}, readSeries(t, path))
}

func TestWriter_AppendRejectsTruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sol.dat")
	require.NoError(t, os.WriteFile(path, append(recordsBytes(Record{1, 1}), 0), 0644))
	_, err := OpenAppend(path, Options{})
	require.ErrorIs(t, err, model.ErrTruncatedRecord)
}

func TestWriter_AppendRecoversAfterKill(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sol.dat")
	require.NoError(t, os.WriteFile(path, recordsBytes(Record{10, 100}, Record{11, 110}), 0644))

	// process dies after flushing, before Commit or Abort
	w, err := OpenAppend(path, Options{})
	require.NoError(t, err)
	require.NoError(t, w.Encode(tick(12_000, "0.12")))
	require.NoError(t, w.Encode(tick(13_000, "0.13")))
	require.NoError(t, w.Flush())
	require.NoError(t, w.f.Close())

	require.Len(t, readSeries(t, path), 4, "killed append still decodes cleanly")
	size, ok, err := InterruptedAppend(path)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(2*RecordSize), size)

	w, err = OpenAppend(path, Options{})
	require.NoError(t, err)
	require.NoError(t, w.Encode(tick(20_000, "0.2")))
	require.NoError(t, w.Commit())
	require.Equal(t, []Record{{10, 100}, {11, 110}, {20, 200}}, readSeries(t, path))

	_, ok, err = InterruptedAppend(path)
	require.NoError(t, err)
	require.False(t, ok)
	_, err = os.Stat(path + AppendingSuffix)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriter_RebuildClearsAppendMarker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sol.dat")
	require.NoError(t, os.WriteFile(path, recordsBytes(Record{10, 100}), 0644))
	require.NoError(t, os.WriteFile(path+AppendingSuffix, []byte("8"), 0644))

	w, err := Create(path, Options{})
	require.NoError(t, err)
	require.NoError(t, w.Encode(tick(1000, "1")))
	require.NoError(t, w.Commit())

	_, ok, err := InterruptedAppend(path)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestInterruptedAppend_CorruptMarker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sol.dat")
	require.NoError(t, os.WriteFile(path+AppendingSuffix, []byte("12"), 0644))
	_, _, err := InterruptedAppend(path)
	require.Error(t, err)
}
