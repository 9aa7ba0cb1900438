package saver

import (
	"strings"

	"sol-data/internal/model"
)

// PacketSaver là abstraction cho lưu từng packet (một ngày) points.
// The exporter only depends on this interface; main picks the implementation.
type PacketSaver interface {
	Save(points []model.Point, path string) error
	Extension() string
}

// NewPacketSaver creates implementation by format (csv, parquet, json).
// Returns nil if format not supported.
func NewPacketSaver(format string) PacketSaver {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return CSVSaver{}
	case "parquet":
		return ParquetSaver{}
	case "json":
		return JSONSaver{}
	default:
		return nil
	}
}
