package series

import (
	"encoding/binary"
	"fmt"
	"time"
)

// RecordSize is the on-disk width of one Record: [u32 timestamp_s][u32 price_milli], little-endian.
const RecordSize = 8

// PriceScale is the fixed-point factor applied to prices (3 decimal places).
const PriceScale = 1000

// Record is the fixed-width encoding of one Tick.
type Record struct {
	TimestampS uint32 // seconds since Unix epoch
	PriceMilli uint32 // price x 1000
}

// Put writes r into b[:RecordSize].
func (r Record) Put(b []byte) {
	_ = b[RecordSize-1]
	binary.LittleEndian.PutUint32(b[0:4], r.TimestampS)
	binary.LittleEndian.PutUint32(b[4:8], r.PriceMilli)
}

// AppendTo appends the encoded record to b.
func (r Record) AppendTo(b []byte) []byte {
	b = binary.LittleEndian.AppendUint32(b, r.TimestampS)
	return binary.LittleEndian.AppendUint32(b, r.PriceMilli)
}

// ParseRecord decodes b[:RecordSize].
func ParseRecord(b []byte) Record {
	_ = b[RecordSize-1]
	return Record{
		TimestampS: binary.LittleEndian.Uint32(b[0:4]),
		PriceMilli: binary.LittleEndian.Uint32(b[4:8]),
	}
}

// Time returns the record timestamp in UTC.
func (r Record) Time() time.Time {
	return time.Unix(int64(r.TimestampS), 0).UTC()
}

// PriceString formats PriceMilli with exactly 3 decimals.
func (r Record) PriceString() string {
	return fmt.Sprintf("%d.%03d", r.PriceMilli/PriceScale, r.PriceMilli%PriceScale)
}

func (r Record) String() string {
	return fmt.Sprintf("(%d, %d)", r.TimestampS, r.PriceMilli)
}
