package model

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the source reader and the series codec.
var (
	ErrMalformedRow      = errors.New("malformed row")
	ErrTimestampOverflow = errors.New("timestamp overflow")
	ErrPriceOverflow     = errors.New("price overflow")
	ErrPrecisionLoss     = errors.New("precision loss")
	ErrTruncatedRecord   = errors.New("truncated record")
	ErrOrderViolation    = errors.New("order violation")
)

// RowError locates a failure in the raw input.
type RowError struct {
	Source string
	Line   int64
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.Source, e.Line, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// RecordError locates a failure in a Series by zero-based record index.
type RecordError struct {
	Index int64
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d: %v", e.Index, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }
