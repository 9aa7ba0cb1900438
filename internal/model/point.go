package model

// Point is one decoded Series record as exported for downstream tools.
// Dùng chung cho saver và serialization (csv, json, parquet).
type Point struct {
	Timestamp  int64   `json:"t" parquet:"t"`   // Unix timestamp in seconds
	PriceMilli uint32  `json:"pm" parquet:"pm"` // price x 1000, exact
	Price      float64 `json:"p" parquet:"p"`   // PriceMilli / 1000, for convenience
}
