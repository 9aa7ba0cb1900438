package series

import (
	"fmt"
	"strings"
)

// DuplicatePolicy decides what happens when several Ticks fall into the same second.
type DuplicatePolicy int

const (
	DuplicateKeepLast  DuplicatePolicy = iota // last write in the second wins
	DuplicateKeepFirst                        // first write wins, later ones are dropped
	DuplicateReject                           // ErrOrderViolation
)

// ParseDuplicatePolicy converts last | first | reject. Empty → last.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "last", "keep-last":
		return DuplicateKeepLast, nil
	case "first", "keep-first":
		return DuplicateKeepFirst, nil
	case "reject", "error":
		return DuplicateReject, nil
	default:
		return DuplicateKeepLast, fmt.Errorf("unsupported duplicate policy %q (use: last, first, reject)", s)
	}
}

func (p DuplicatePolicy) String() string {
	switch p {
	case DuplicateKeepLast:
		return "last"
	case DuplicateKeepFirst:
		return "first"
	case DuplicateReject:
		return "reject"
	default:
		return "unknown"
	}
}

// Options controls Tick → Record conversion.
type Options struct {
	Rounding   Rounding
	Strict     bool // fail with ErrPrecisionLoss instead of rounding beyond 3 decimals
	Duplicates DuplicatePolicy
	FillGaps   bool // replicate the last price for every skipped second
}
