package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"sol-data/internal/model"
)

// Kline CSV columns used by the reader.
const (
	colOpenTime = 0
	colClose    = 4
	colVolume   = 5
)

// microsThreshold: open times at or above this value are microseconds (16+ digits).
const microsThreshold = 1_000_000_000_000_000

// TimeUnit tells the reader how to interpret the open time column.
type TimeUnit int

const (
	TimeUnitAuto TimeUnit = iota
	TimeUnitMillis
	TimeUnitMicros
)

// ParseTimeUnit converts auto | ms | us. Empty → auto.
func ParseTimeUnit(s string) (TimeUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return TimeUnitAuto, nil
	case "ms", "millis", "milliseconds":
		return TimeUnitMillis, nil
	case "us", "micros", "microseconds":
		return TimeUnitMicros, nil
	default:
		return TimeUnitAuto, fmt.Errorf("unsupported time unit %q (use: auto, ms, us)", s)
	}
}

func (u TimeUnit) String() string {
	switch u {
	case TimeUnitMillis:
		return "ms"
	case TimeUnitMicros:
		return "us"
	default:
		return "auto"
	}
}

// Reader yields Ticks from one kline CSV stream, in file order.
type Reader struct {
	csv  *csv.Reader
	name string
	unit TimeUnit

	rows    int64
	lastMs  int64
	hasLast bool
}

// NewReader reads kline rows from r. name is used in error positions.
func NewReader(r io.Reader, name string, unit TimeUnit) *Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	cr.TrimLeadingSpace = true
	return &Reader{csv: cr, name: name, unit: unit}
}

// after makes the reader reject rows older than ms (continuation of a previous file).
func (r *Reader) after(ms int64) {
	r.lastMs = ms
	r.hasLast = true
}

// Next returns the next Tick or io.EOF.
func (r *Reader) Next() (model.Tick, error) {
	for {
		rec, err := r.csv.Read()
		if errors.Is(err, io.EOF) {
			return model.Tick{}, io.EOF
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return model.Tick{}, r.rowError(int64(pe.Line), fmt.Errorf("%w: %v", model.ErrMalformedRow, pe.Err))
			}
			return model.Tick{}, fmt.Errorf("read %s: %w", r.name, err)
		}
		line, _ := r.csv.FieldPos(0)
		r.rows++
		if r.rows == 1 && isHeader(rec) {
			continue
		}

		t, err := r.parse(rec)
		if err != nil {
			return model.Tick{}, r.rowError(int64(line), err)
		}
		t.Source = r.name
		t.Line = int64(line)

		if r.hasLast && t.TimeMs < r.lastMs {
			return model.Tick{}, r.rowError(int64(line),
				fmt.Errorf("%w: open time %d after %d", model.ErrOrderViolation, t.TimeMs, r.lastMs))
		}
		r.lastMs = t.TimeMs
		r.hasLast = true
		return t, nil
	}
}

func (r *Reader) rowError(line int64, err error) error {
	return &model.RowError{Source: r.name, Line: line, Err: err}
}

func (r *Reader) parse(rec []string) (model.Tick, error) {
	if len(rec) <= colClose {
		return model.Tick{}, fmt.Errorf("%w: %d columns, need at least %d", model.ErrMalformedRow, len(rec), colClose+1)
	}
	ms, err := r.parseTime(rec[colOpenTime])
	if err != nil {
		return model.Tick{}, err
	}
	price, err := parseDecimal(rec[colClose], "close price")
	if err != nil {
		return model.Tick{}, err
	}
	t := model.Tick{TimeMs: ms, Close: price}
	if len(rec) > colVolume {
		if t.Volume, err = parseDecimal(rec[colVolume], "volume"); err != nil {
			return model.Tick{}, err
		}
	}
	return t, nil
}

func (r *Reader) parseTime(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if !isDigits(s) {
		return 0, fmt.Errorf("%w: open time %q is not a non-negative integer", model.ErrMalformedRow, s)
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: open time %q: %v", model.ErrMalformedRow, s, err)
	}
	switch r.unit {
	case TimeUnitMicros:
		return v / 1000, nil
	case TimeUnitMillis:
		return v, nil
	default:
		if v >= microsThreshold {
			return v / 1000, nil
		}
		return v, nil
	}
}

func parseDecimal(s, field string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("%w: empty %s", model.ErrMalformedRow, field)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %s %q: %v", model.ErrMalformedRow, field, s, err)
	}
	return d, nil
}

// isHeader reports whether the first row is a column header ("open_time", "Open time", ...):
// no field of it parses as a number. A data row with a broken open time still has a
// numeric price and is reported as malformed instead.
func isHeader(rec []string) bool {
	if len(rec) == 0 {
		return false
	}
	for i, f := range rec {
		if i == 0 {
			f = strings.TrimPrefix(f, "\ufeff")
		}
		if _, err := decimal.NewFromString(strings.TrimSpace(f)); err == nil {
			return false
		}
	}
	return true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
