package series

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"sol-data/internal/model"
)

// Rounding selects how a price is brought to 3 decimal places.
type Rounding int

const (
	RoundHalfUp   Rounding = iota // 2.8505 -> 2851
	RoundHalfEven                 // 2.8505 -> 2850, 2.8515 -> 2852
	RoundTruncate                 // 2.8509 -> 2850
)

// ParseRounding converts half-up | half-even | truncate. Empty → half-up.
func ParseRounding(s string) (Rounding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "half-up", "halfup":
		return RoundHalfUp, nil
	case "half-even", "halfeven", "bank":
		return RoundHalfEven, nil
	case "truncate", "trunc", "floor":
		return RoundTruncate, nil
	default:
		return RoundHalfUp, fmt.Errorf("unsupported rounding %q (use: half-up, half-even, truncate)", s)
	}
}

func (r Rounding) String() string {
	switch r {
	case RoundHalfUp:
		return "half-up"
	case RoundHalfEven:
		return "half-even"
	case RoundTruncate:
		return "truncate"
	default:
		return "unknown"
	}
}

var (
	maxUint32 = decimal.NewFromInt(math.MaxUint32)
	maxMillis = (int64(math.MaxUint32) + 1) * 1000
)

// SecondsFromMillis floors a millisecond timestamp to whole seconds.
func SecondsFromMillis(ms int64) (uint32, error) {
	if ms < 0 || ms >= maxMillis {
		return 0, fmt.Errorf("%w: %d ms", model.ErrTimestampOverflow, ms)
	}
	return uint32(ms / 1000), nil
}

// ScalePrice returns d*1000 rounded with mode. In strict mode any nonzero digit past
// the third decimal is an error instead of being rounded away.
func ScalePrice(d decimal.Decimal, mode Rounding, strict bool) (uint32, error) {
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: negative price %s", model.ErrPriceOverflow, d.String())
	}
	scaled := d.Shift(3)
	if strict && !scaled.IsInteger() {
		return 0, fmt.Errorf("%w: %s has more than 3 decimals", model.ErrPrecisionLoss, d.String())
	}
	switch mode {
	case RoundHalfEven:
		scaled = scaled.RoundBank(0)
	case RoundTruncate:
		scaled = scaled.Truncate(0)
	default:
		scaled = scaled.Round(0)
	}
	if scaled.GreaterThan(maxUint32) {
		return 0, fmt.Errorf("%w: %s", model.ErrPriceOverflow, d.String())
	}
	return uint32(scaled.IntPart()), nil
}

// EncodeTick maps one Tick to its Record. Same input, same output.
func EncodeTick(t model.Tick, opts Options) (Record, error) {
	ts, err := SecondsFromMillis(t.TimeMs)
	if err != nil {
		return Record{}, err
	}
	p, err := ScalePrice(t.Close, opts.Rounding, opts.Strict)
	if err != nil {
		return Record{}, err
	}
	return Record{TimestampS: ts, PriceMilli: p}, nil
}
