package series

import (
	"bufio"
	"fmt"
	"io"

	"sol-data/internal/model"
)

// Stats counts what an Encoder did with its input.
type Stats struct {
	Ticks      int64 `json:"ticks"`      // Ticks passed to Encode
	Written    int64 `json:"written"`    // Records written (fills included)
	Duplicates int64 `json:"duplicates"` // Ticks merged into an existing second
	Filled     int64 `json:"filled"`     // Records synthesized by FillGaps
}

// Encoder streams Ticks into fixed-width Records.
//
// The record for the current second is held back until a later second arrives (or Flush
// is called) so that DuplicateKeepLast can still replace it. Nothing reaches the
// underlying writer for a Tick that fails validation.
type Encoder struct {
	w    *bufio.Writer
	opts Options
	buf  []byte

	last       Record // last record handed to w
	hasLast    bool
	pending    Record
	hasPending bool

	stats Stats
}

// NewEncoder wraps w with a buffered writer.
func NewEncoder(w io.Writer, opts Options) *Encoder {
	return &Encoder{
		w:    bufio.NewWriterSize(w, 64*1024),
		opts: opts,
		buf:  make([]byte, RecordSize),
	}
}

// Seed tells the encoder that prev is already persisted, so ordering and gap filling
// continue from it. Used when appending to an existing Series.
func (e *Encoder) Seed(prev Record) {
	e.last = prev
	e.hasLast = true
}

// Stats returns the counters so far.
func (e *Encoder) Stats() Stats { return e.stats }

// Index is the zero-based index the next new second would get, counted from the first
// record written by this encoder.
func (e *Encoder) Index() int64 {
	if e.hasPending {
		return e.stats.Written + 1
	}
	return e.stats.Written
}

func (e *Encoder) prev() (Record, bool) {
	if e.hasPending {
		return e.pending, true
	}
	return e.last, e.hasLast
}

// Encode converts t and queues its record.
func (e *Encoder) Encode(t model.Tick) error {
	e.stats.Ticks++
	rec, err := EncodeTick(t, e.opts)
	if err != nil {
		return &model.RecordError{Index: e.Index(), Err: err}
	}

	prev, ok := e.prev()
	if ok {
		switch {
		case rec.TimestampS < prev.TimestampS:
			return &model.RecordError{
				Index: e.Index(),
				Err:   fmt.Errorf("%w: second %d after %d", model.ErrOrderViolation, rec.TimestampS, prev.TimestampS),
			}
		case rec.TimestampS == prev.TimestampS:
			return e.duplicate(rec)
		}
	}

	if err := e.writePending(); err != nil {
		return err
	}
	if e.opts.FillGaps && ok {
		for ts := prev.TimestampS + 1; ts < rec.TimestampS; ts++ {
			if err := e.write(Record{TimestampS: ts, PriceMilli: prev.PriceMilli}); err != nil {
				return err
			}
			e.stats.Filled++
		}
	}
	e.pending = rec
	e.hasPending = true
	return nil
}

func (e *Encoder) duplicate(rec Record) error {
	switch e.opts.Duplicates {
	case DuplicateReject:
		return &model.RecordError{
			Index: e.Index(),
			Err:   fmt.Errorf("%w: duplicate second %d", model.ErrOrderViolation, rec.TimestampS),
		}
	case DuplicateKeepLast:
		// An already persisted record (append mode) is never rewritten.
		if e.hasPending {
			e.pending = rec
		}
	}
	e.stats.Duplicates++
	return nil
}

func (e *Encoder) writePending() error {
	if !e.hasPending {
		return nil
	}
	if err := e.write(e.pending); err != nil {
		return err
	}
	e.hasPending = false
	return nil
}

func (e *Encoder) write(rec Record) error {
	rec.Put(e.buf)
	if _, err := e.w.Write(e.buf); err != nil {
		return fmt.Errorf("write record %d: %w", e.stats.Written, err)
	}
	e.last = rec
	e.hasLast = true
	e.stats.Written++
	return nil
}

// Flush writes the held-back record and flushes the buffer. Encode may be called again
// afterwards; a later Tick in the same second is then treated as a persisted duplicate.
func (e *Encoder) Flush() error {
	if err := e.writePending(); err != nil {
		return err
	}
	if err := e.w.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}
