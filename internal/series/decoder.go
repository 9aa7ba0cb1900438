package series

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"sol-data/internal/model"
)

// Decoder reads Records sequentially from a stream.
type Decoder struct {
	r      *bufio.Reader
	strict bool
	index  int64 // index of the next record
	buf    []byte

	last    uint32
	hasLast bool
}

// NewDecoder reads records from r starting at index 0.
// With strict set, every record is checked against the previous one for order.
func NewDecoder(r io.Reader, strict bool) *Decoder {
	return newDecoderAt(r, 0, strict)
}

func newDecoderAt(r io.Reader, index int64, strict bool) *Decoder {
	return &Decoder{
		r:      bufio.NewReaderSize(r, 64*1024),
		strict: strict,
		index:  index,
		buf:    make([]byte, RecordSize),
	}
}

// Index returns the index of the record the next call to Next returns.
func (d *Decoder) Index() int64 { return d.index }

// Next returns the next record, io.EOF at a clean end of stream, or an error wrapping
// ErrTruncatedRecord when the stream ends inside a record.
func (d *Decoder) Next() (Record, error) {
	n, err := io.ReadFull(d.r, d.buf)
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		return Record{}, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		return Record{}, &model.RecordError{
			Index: d.index,
			Err:   fmt.Errorf("%w: %d trailing bytes", model.ErrTruncatedRecord, n),
		}
	default:
		return Record{}, fmt.Errorf("read record %d: %w", d.index, err)
	}

	rec := ParseRecord(d.buf)
	if d.strict && d.hasLast && rec.TimestampS < d.last {
		return Record{}, &model.RecordError{
			Index: d.index,
			Err:   fmt.Errorf("%w: second %d after %d", model.ErrOrderViolation, rec.TimestampS, d.last),
		}
	}
	d.last = rec.TimestampS
	d.hasLast = true
	d.index++
	return rec, nil
}

// ReadAll decodes the rest of the stream into memory. Intended for tests and small files.
func (d *Decoder) ReadAll() ([]Record, error) {
	var out []Record
	for {
		rec, err := d.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}
