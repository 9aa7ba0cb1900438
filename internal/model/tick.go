package model

import "github.com/shopspring/decimal"

// Tick is one parsed kline row before encoding.
// Dùng chung cho source, series và convert.
type Tick struct {
	TimeMs int64           // open time, Unix milliseconds
	Close  decimal.Decimal // close price as printed by the archive
	Volume decimal.Decimal // base asset volume, zero when the column is absent
	Source string          // file (or archive member) the row came from
	Line   int64           // 1-based row number inside Source
}
