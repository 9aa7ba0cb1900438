package series

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// PartialSuffix marks a Series that is still being written.
const PartialSuffix = ".partial"

// AppendingSuffix marks a Series being extended in place. The marker holds the size of
// the Series before the append started and is removed on Commit or Abort.
const AppendingSuffix = ".appending"

// Writer owns a Series file for one conversion run. Records are written to a
// side file (or past the original end in append mode) and only become the Series
// on Commit. Abort discards everything written by this Writer.
type Writer struct {
	*Encoder
	f        *os.File
	path     string
	tmp      string // empty in append mode
	origSize int64
	closed   bool
}

// Create starts a new Series at path, replacing any existing one on Commit.
func Create(path string, opts Options) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create dir: %w", err)
	}
	tmp := path + PartialSuffix
	f, err := os.Create(tmp)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", tmp, err)
	}
	return &Writer{
		Encoder: NewEncoder(f, opts),
		f:       f,
		path:    path,
		tmp:     tmp,
	}, nil
}

// OpenAppend extends the Series at path. New Ticks must not go back in time past the
// existing last record. A missing file behaves like Create.
//
// Records go straight into the live file, so a process killed mid-run leaves a longer
// file that still decodes cleanly. The AppendingSuffix marker written next to it
// records the committed size: InterruptedAppend reports it, and the next OpenAppend
// truncates the file back to that size before continuing.
func OpenAppend(path string, opts Options) (*Writer, error) {
	if size, ok, err := InterruptedAppend(path); err != nil {
		return nil, err
	} else if ok {
		slog.Warn("previous append was interrupted, truncating", "path", path, "size", size)
		if err := os.Truncate(path, size); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("recover %s: %w", path, err)
		}
		if err := os.Remove(path + AppendingSuffix); err != nil {
			return nil, fmt.Errorf("recover %s: %w", path, err)
		}
	}

	s, err := Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return Create(path, opts)
	}
	if err != nil {
		return nil, err
	}
	last, ok, err := s.Last()
	size := s.Len() * RecordSize
	s.Close()
	if err != nil {
		return nil, err
	}

	marker := path + AppendingSuffix
	if err := os.WriteFile(marker, []byte(strconv.FormatInt(size, 10)), 0644); err != nil {
		return nil, fmt.Errorf("write append marker: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		os.Remove(marker)
		return nil, fmt.Errorf("open %s for append: %w", path, err)
	}
	w := &Writer{
		Encoder:  NewEncoder(f, opts),
		f:        f,
		path:     path,
		origSize: size,
	}
	if ok {
		w.Seed(last)
	}
	return w, nil
}

// InterruptedAppend reports whether an append on path was left unfinished, and the
// size the Series had before it started.
func InterruptedAppend(path string) (int64, bool, error) {
	b, err := os.ReadFile(path + AppendingSuffix)
	if errors.Is(err, os.ErrNotExist) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	size, err := strconv.ParseInt(strings.TrimSpace(string(b)), 10, 64)
	if err != nil || size < 0 || size%RecordSize != 0 {
		return 0, false, fmt.Errorf("corrupt append marker %s: %q", path+AppendingSuffix, b)
	}
	return size, true, nil
}

// Path returns the final Series path.
func (w *Writer) Path() string { return w.path }

// Commit flushes, syncs and publishes the Series. On failure the output is discarded.
func (w *Writer) Commit() error {
	if w.closed {
		return errors.New("series writer already closed")
	}
	if err := w.Flush(); err != nil {
		return errors.Join(err, w.Abort())
	}
	if err := w.f.Sync(); err != nil {
		return errors.Join(fmt.Errorf("sync: %w", err), w.Abort())
	}
	w.closed = true
	if err := w.f.Close(); err != nil {
		return errors.Join(fmt.Errorf("close: %w", err), w.discard())
	}
	if w.tmp != "" {
		if err := os.Rename(w.tmp, w.path); err != nil {
			os.Remove(w.tmp)
			return fmt.Errorf("publish %s: %w", w.path, err)
		}
	}
	// a rebuilt Series also supersedes a stale marker
	return removeMarker(w.path)
}

// Abort discards the output of this Writer. Safe to call after Commit (no-op).
func (w *Writer) Abort() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.f.Close()
	return w.discard()
}

func (w *Writer) discard() error {
	if w.tmp != "" {
		if err := os.Remove(w.tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}
	if err := os.Truncate(w.path, w.origSize); err != nil {
		return fmt.Errorf("truncate %s back to %d bytes: %w", w.path, w.origSize, err)
	}
	return removeMarker(w.path)
}

func removeMarker(path string) error {
	if err := os.Remove(path + AppendingSuffix); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
