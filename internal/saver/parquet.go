package saver

import (
	"github.com/parquet-go/parquet-go"

	"sol-data/internal/model"
)

// ParquetSaver lưu packet dưới dạng Parquet.
type ParquetSaver struct{}

func (ParquetSaver) Extension() string { return "parquet" }

func (ParquetSaver) Save(points []model.Point, path string) error {
	return parquet.WriteFile(path, points)
}
