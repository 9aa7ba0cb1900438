package fetch

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Progress maps Target.Key() to the last day (2006-01-02) fetched without gaps.
type Progress map[string]string

// LoadProgress reads the progress file; a missing or corrupt file is empty progress.
func LoadProgress(path string) Progress {
	data, err := os.ReadFile(path)
	if err != nil {
		return make(Progress)
	}
	var m Progress
	if err := json.Unmarshal(data, &m); err != nil || m == nil {
		return make(Progress)
	}
	return m
}

// Last returns the last fetched day for key, zero when none.
func (p Progress) Last(key string) time.Time {
	s, ok := p[key]
	if !ok {
		return time.Time{}
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Save writes the progress file.
func (p Progress) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// watermark tracks the contiguous prefix of finished jobs, which may complete out of order.
type watermark struct {
	done []bool
	next int
}

func newWatermark(n int) *watermark { return &watermark{done: make([]bool, n)} }

// mark records job i as done and reports whether the prefix advanced.
func (w *watermark) mark(i int) bool {
	w.done[i] = true
	start := w.next
	for w.next < len(w.done) && w.done[w.next] {
		w.next++
	}
	return w.next > start
}
