package export

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"sol-data/internal/model"
	"sol-data/internal/saver"
	"sol-data/internal/series"
)

// secondsPerDay bounds one packet.
const secondsPerDay = 86400

// Params selects what to export.
type Params struct {
	Symbol string
	Dir    string
	From   time.Time // inclusive, zero → first record
	To     time.Time // exclusive, zero → end of Series
}

// Summary counts exported packets and points.
type Summary struct {
	Packets int
	Points  int64
}

// Run writes the selected part of s as one packet per UTC day:
// {Dir}/{symbol}_{2006-01-02}.{ext}. Random access is used to jump to From.
func Run(s *series.Series, ps saver.PacketSaver, p Params) (Summary, error) {
	var sum Summary
	if err := os.MkdirAll(p.Dir, 0755); err != nil {
		return sum, fmt.Errorf("create export dir: %w", err)
	}

	start, err := startIndex(s, p.From)
	if err != nil {
		return sum, err
	}
	hasEnd := !p.To.IsZero()
	end := p.To.Unix()

	var packet []model.Point
	var day int64 = -1
	flush := func() error {
		if len(packet) == 0 {
			return nil
		}
		date := time.Unix(day*secondsPerDay, 0).UTC().Format("2006-01-02")
		path := filepath.Join(p.Dir, fmt.Sprintf("%s_%s.%s", p.Symbol, date, ps.Extension()))
		if err := ps.Save(packet, path); err != nil {
			return fmt.Errorf("save %s: %w", path, err)
		}
		slog.Debug("saved packet", "path", path, "points", len(packet))
		sum.Packets++
		sum.Points += int64(len(packet))
		packet = packet[:0]
		return nil
	}

	for rec, err := range s.All(start) {
		if err != nil {
			return sum, err
		}
		if hasEnd && int64(rec.TimestampS) >= end {
			break
		}
		d := int64(rec.TimestampS) / secondsPerDay
		if d != day {
			if err := flush(); err != nil {
				return sum, err
			}
			day = d
		}
		packet = append(packet, model.Point{
			Timestamp:  int64(rec.TimestampS),
			PriceMilli: rec.PriceMilli,
			Price:      float64(rec.PriceMilli) / series.PriceScale,
		})
	}
	if err := flush(); err != nil {
		return sum, err
	}
	slog.Info("export done", "dir", p.Dir, "format", ps.Extension(), "packets", sum.Packets, "points", sum.Points)
	return sum, nil
}

// startIndex returns the first record at or after from. Bounds outside the uint32
// second range clamp to the ends of the Series.
func startIndex(s *series.Series, from time.Time) (int64, error) {
	if from.IsZero() {
		return 0, nil
	}
	switch ts := from.Unix(); {
	case ts <= 0:
		return 0, nil
	case ts > math.MaxUint32:
		return s.Len(), nil
	default:
		return s.Search(uint32(ts))
	}
}
