package source

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"sol-data/internal/model"
)

// IsDataFile reports whether name is a kline file the reader understands (.csv or .zip).
func IsDataFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".zip":
		return true
	}
	return false
}

// ListFiles expands each path into the data files to convert. Files from all paths are
// merged and sorted case-insensitively by archive name without extension, so daily
// archives of a partial month slot in around the monthly ones:
// ...-2020-08-31 < ...-2020-09 < ...-2020-10 < ...-2020-10-30.
// A daily archive whose month is also present as a monthly archive is skipped.
// Missing paths are skipped with a warning.
func ListFiles(paths ...string) ([]string, error) {
	var files []string
	for _, p := range paths {
		st, err := os.Stat(p)
		if errors.Is(err, os.ErrNotExist) {
			slog.Warn("source path not found, skip", "path", p)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		if !st.IsDir() {
			files = append(files, p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("read dir %s: %w", p, err)
		}
		n := 0
		for _, e := range entries {
			if e.IsDir() || !IsDataFile(e.Name()) {
				continue
			}
			files = append(files, filepath.Join(p, e.Name()))
			n++
		}
		slog.Debug("listed source dir", "path", p, "files", n)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no kline files (.csv, .zip) in %s", strings.Join(paths, ", "))
	}

	sort.SliceStable(files, func(i, j int) bool {
		ki, kj := archiveKey(files[i]), archiveKey(files[j])
		if ki != kj {
			return ki < kj
		}
		return strings.ToLower(files[i]) < strings.ToLower(files[j])
	})

	months := make(map[string]bool)
	for _, f := range files {
		months[archiveKey(f)] = true
	}
	out := files[:0]
	for _, f := range files {
		if m, ok := monthKey(archiveKey(f)); ok && months[m] {
			slog.Info("daily archive covered by monthly one, skip", "path", f)
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

// archiveKey is the lower-cased file name without extension: solusdt-1s-2020-08-11.
func archiveKey(path string) string {
	base := filepath.Base(path)
	return strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
}

// monthKey maps the key of a daily archive to the key of its monthly archive.
func monthKey(key string) (string, bool) {
	const dayLayout = "2006-01-02"
	if len(key) <= len(dayLayout) || key[len(key)-len(dayLayout)-1] != '-' {
		return "", false
	}
	if _, err := time.Parse(dayLayout, key[len(key)-len(dayLayout):]); err != nil {
		return "", false
	}
	return key[:len(key)-len("-02")], true
}

// MultiReader chains kline files into one Tick sequence. Zip archives are read member
// by member (csv members in name order). Ordering is enforced across file boundaries.
type MultiReader struct {
	files []string
	unit  TimeUnit
	next  int

	// OnOpen, when set, is called each time a new file or archive member starts.
	OnOpen func(name string)

	cur     *Reader
	closer  io.Closer
	zr      *zip.ReadCloser
	members []*zip.File

	lastMs  int64
	hasLast bool
}

// NewMultiReader reads files in the given order.
func NewMultiReader(files []string, unit TimeUnit) *MultiReader {
	return &MultiReader{files: files, unit: unit}
}

// Next returns the next Tick across all files, or io.EOF after the last one.
func (m *MultiReader) Next() (model.Tick, error) {
	for {
		if m.cur == nil {
			if err := m.advance(); err != nil {
				return model.Tick{}, err
			}
		}
		t, err := m.cur.Next()
		if errors.Is(err, io.EOF) {
			if err := m.closeCurrent(); err != nil {
				return model.Tick{}, err
			}
			continue
		}
		if err != nil {
			return model.Tick{}, err
		}
		m.lastMs = t.TimeMs
		m.hasLast = true
		return t, nil
	}
}

// Close releases any open file.
func (m *MultiReader) Close() error {
	err := m.closeCurrent()
	if m.zr != nil {
		err = errors.Join(err, m.zr.Close())
		m.zr = nil
		m.members = nil
	}
	return err
}

func (m *MultiReader) advance() error {
	for {
		if m.zr != nil {
			if len(m.members) > 0 {
				zf := m.members[0]
				m.members = m.members[1:]
				rc, err := zf.Open()
				if err != nil {
					return fmt.Errorf("open %s in %s: %w", zf.Name, m.files[m.next-1], err)
				}
				m.start(rc, m.files[m.next-1]+"#"+zf.Name)
				return nil
			}
			err := m.zr.Close()
			m.zr = nil
			if err != nil {
				return err
			}
		}

		if m.next >= len(m.files) {
			return io.EOF
		}
		path := m.files[m.next]
		m.next++

		if strings.EqualFold(filepath.Ext(path), ".zip") {
			zr, err := zip.OpenReader(path)
			if err != nil {
				return fmt.Errorf("open archive %s: %w", path, err)
			}
			m.zr = zr
			m.members = csvMembers(zr)
			if len(m.members) == 0 {
				slog.Warn("archive has no csv member", "path", path)
			}
			continue
		}

		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		m.start(f, path)
		return nil
	}
}

func (m *MultiReader) start(rc io.ReadCloser, name string) {
	m.cur = NewReader(rc, name, m.unit)
	if m.hasLast {
		m.cur.after(m.lastMs)
	}
	m.closer = rc
	if m.OnOpen != nil {
		m.OnOpen(name)
	}
}

func (m *MultiReader) closeCurrent() error {
	m.cur = nil
	if m.closer == nil {
		return nil
	}
	err := m.closer.Close()
	m.closer = nil
	return err
}

func csvMembers(zr *zip.ReadCloser) []*zip.File {
	var out []*zip.File
	for _, f := range zr.File {
		if !f.FileInfo().IsDir() && strings.EqualFold(filepath.Ext(f.Name), ".csv") {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
