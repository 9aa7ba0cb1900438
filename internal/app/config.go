package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"sol-data/internal/series"
	"sol-data/internal/source"
)

// DefaultStartDate is the first day of SOLUSDT spot trading on Binance.
const DefaultStartDate = "2020-08-11"

// Config holds application configuration from env
type Config struct {
	Symbol     string
	Market     string // spot | futures/um | futures/cm
	Interval   string // kline interval, 1s by default
	DataDir    string
	SeriesPath string
	StartDate  time.Time
	LogLevel   string // debug | info | warn | error

	// convert
	Rounding   series.Rounding
	Duplicates series.DuplicatePolicy
	Strict     bool
	FillGaps   bool
	TimeUnit   source.TimeUnit

	// fetch
	BaseURL      string
	FetchWorkers int
	FetchRPS     float64
	FetchRetries int

	// export
	ExportFormat string

	// sync: daily fetch + convert time (UTC)
	SyncRunHour   int
	SyncRunMinute int
}

// LoadConfig reads config from environment (optionally via .env).
func LoadConfig() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{
		Symbol:        strings.ToUpper(getEnv("SYMBOL", "SOLUSDT")),
		Market:        getEnv("MARKET", "spot"),
		Interval:      getEnv("INTERVAL", "1s"),
		DataDir:       getEnv("DATA_DIR", "data"),
		SeriesPath:    os.Getenv("SERIES_PATH"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		BaseURL:       strings.TrimRight(getEnv("BASE_URL", "https://data.binance.vision"), "/"),
		FetchWorkers:  getEnvInt("FETCH_WORKERS", 4),
		FetchRPS:      getEnvFloat("FETCH_RPS", 5),
		FetchRetries:  getEnvInt("FETCH_RETRIES", 3),
		ExportFormat:  getEnv("EXPORT_FORMAT", getExportFormat()),
		Strict:        getEnvBool("STRICT", false),
		FillGaps:      getEnvBool("FILL_GAPS", false),
		SyncRunHour:   0,
		SyncRunMinute: 30,
	}
	if v := getEnvInt("SYNC_RUN_HOUR", -1); v >= 0 && v <= 23 {
		cfg.SyncRunHour = v
	}
	if v := getEnvInt("SYNC_RUN_MINUTE", -1); v >= 0 && v <= 59 {
		cfg.SyncRunMinute = v
	}
	if cfg.SeriesPath == "" {
		cfg.SeriesPath = filepath.Join(cfg.DataDir, strings.ToLower(cfg.Symbol)+"_"+cfg.Interval+".dat")
	}

	var err error
	if cfg.StartDate, err = time.ParseInLocation("2006-01-02", getEnv("START_DATE", DefaultStartDate), time.UTC); err != nil {
		return nil, fmt.Errorf("START_DATE: %w", err)
	}
	if cfg.Rounding, err = series.ParseRounding(os.Getenv("ROUNDING")); err != nil {
		return nil, fmt.Errorf("ROUNDING: %w", err)
	}
	if cfg.Duplicates, err = series.ParseDuplicatePolicy(os.Getenv("DUPLICATES")); err != nil {
		return nil, fmt.Errorf("DUPLICATES: %w", err)
	}
	if cfg.TimeUnit, err = source.ParseTimeUnit(os.Getenv("TIME_UNIT")); err != nil {
		return nil, fmt.Errorf("TIME_UNIT: %w", err)
	}
	if cfg.FetchWorkers < 1 {
		cfg.FetchWorkers = 1
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil && v > 0 {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

// getExportFormat mặc định theo PROFILE (dev→csv, prod/empty→parquet).
func getExportFormat() string {
	switch os.Getenv("PROFILE") {
	case "dev", "development":
		return "csv"
	default:
		return "parquet"
	}
}

// SeriesOptions returns the encoder options for this config.
func (c *Config) SeriesOptions() series.Options {
	return series.Options{
		Rounding:   c.Rounding,
		Strict:     c.Strict,
		Duplicates: c.Duplicates,
		FillGaps:   c.FillGaps,
	}
}

// KlineDir returns data/{market}/{period}/klines/{SYMBOL}/{interval}, the layout of the archive mirror.
func (c *Config) KlineDir(period string) string {
	return filepath.Join(c.DataDir, filepath.FromSlash(c.Market), period, "klines", c.Symbol, c.Interval)
}

// SourceDirs returns the monthly then daily kline directories.
func (c *Config) SourceDirs() []string {
	return []string{c.KlineDir("monthly"), c.KlineDir("daily")}
}

// ExportDir returns data/export/{SYMBOL}
func (c *Config) ExportDir() string {
	return filepath.Join(c.DataDir, "export", c.Symbol)
}

// ProgressPath returns path to .lastday.json
func (c *Config) ProgressPath() string {
	return filepath.Join(c.DataDir, ".lastday.json")
}
