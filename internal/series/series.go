package series

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"sort"

	"sol-data/internal/model"
)

// Series is read-only random access over an encoded file. All methods are safe for
// concurrent use because reads go through io.ReaderAt.
type Series struct {
	r      io.ReaderAt
	n      int64
	closer io.Closer
}

// NewSeries wraps r holding size bytes. A size that is not a multiple of RecordSize
// fails with ErrTruncatedRecord at the index of the incomplete record.
func NewSeries(r io.ReaderAt, size int64) (*Series, error) {
	if rem := size % RecordSize; rem != 0 {
		return nil, &model.RecordError{
			Index: size / RecordSize,
			Err:   fmt.Errorf("%w: %d trailing bytes", model.ErrTruncatedRecord, rem),
		}
	}
	return &Series{r: r, n: size / RecordSize}, nil
}

// Open opens a Series file.
func Open(path string) (*Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	s, err := NewSeries(f, st.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	s.closer = f
	return s, nil
}

// Close releases the underlying file, if Open created it.
func (s *Series) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Len returns the number of records.
func (s *Series) Len() int64 { return s.n }

// At reads record i.
func (s *Series) At(i int64) (Record, error) {
	if i < 0 || i >= s.n {
		return Record{}, fmt.Errorf("record %d out of range [0, %d)", i, s.n)
	}
	var b [RecordSize]byte
	if _, err := s.r.ReadAt(b[:], i*RecordSize); err != nil {
		return Record{}, fmt.Errorf("read record %d: %w", i, err)
	}
	return ParseRecord(b[:]), nil
}

// Cursor returns a sequential Decoder positioned at record i. Indexes reported by the
// decoder are absolute.
func (s *Series) Cursor(i int64, strict bool) *Decoder {
	if i < 0 {
		i = 0
	}
	if i > s.n {
		i = s.n
	}
	sr := io.NewSectionReader(s.r, i*RecordSize, (s.n-i)*RecordSize)
	return newDecoderAt(sr, i, strict)
}

// All iterates every record from index from onwards. Iteration stops at the first error.
func (s *Series) All(from int64) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		d := s.Cursor(from, false)
		for {
			rec, err := d.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(rec, err) || err != nil {
				return
			}
		}
	}
}

// Search returns the index of the first record with TimestampS >= ts, or Len() when
// there is none. The Series must be sorted.
func (s *Series) Search(ts uint32) (int64, error) {
	var readErr error
	i := sort.Search(int(s.n), func(i int) bool {
		if readErr != nil {
			return true
		}
		rec, err := s.At(int64(i))
		if err != nil {
			readErr = err
			return true
		}
		return rec.TimestampS >= ts
	})
	if readErr != nil {
		return 0, readErr
	}
	return int64(i), nil
}

// Verify decodes the whole Series in strict mode and returns the number of records.
func (s *Series) Verify() (int64, error) {
	d := s.Cursor(0, true)
	for {
		_, err := d.Next()
		if errors.Is(err, io.EOF) {
			return d.Index(), nil
		}
		if err != nil {
			return d.Index(), err
		}
	}
}

// Last returns the final record; ok is false for an empty Series.
func (s *Series) Last() (rec Record, ok bool, err error) {
	if s.n == 0 {
		return Record{}, false, nil
	}
	rec, err = s.At(s.n - 1)
	return rec, err == nil, err
}
