package saver

import (
	"encoding/csv"
	"os"
	"strconv"

	"sol-data/internal/model"
)

// CSVSaver lưu packet dưới dạng CSV (header: t,pm,p).
type CSVSaver struct{}

func (CSVSaver) Extension() string { return "csv" }

func (CSVSaver) Save(points []model.Point, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	w := csv.NewWriter(f)

	if err := w.Write([]string{"t", "pm", "p"}); err != nil {
		return err
	}
	for _, p := range points {
		if err := w.Write([]string{
			strconv.FormatInt(p.Timestamp, 10),
			strconv.FormatUint(uint64(p.PriceMilli), 10),
			strconv.FormatFloat(p.Price, 'f', 3, 64),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
