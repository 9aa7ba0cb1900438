package app

import (
	"sol-data/internal/convert"
	"sol-data/internal/fetch"
)

// Target returns the archive target of cfg.
func (c *Config) Target() fetch.Target {
	return fetch.Target{Market: c.Market, Symbol: c.Symbol, Interval: c.Interval}
}

// FetchParams builds fetch parameters from config.
func FetchParams(cfg *Config, verify bool) fetch.Params {
	return fetch.Params{
		Target:       cfg.Target(),
		BaseURL:      cfg.BaseURL,
		DataDir:      cfg.DataDir,
		Start:        cfg.StartDate,
		Workers:      cfg.FetchWorkers,
		Verify:       verify,
		ProgressPath: cfg.ProgressPath(),
	}
}

// ConvertParams builds conversion parameters from config. Without explicit sources
// the monthly then daily kline directories are converted.
func ConvertParams(cfg *Config, sources []string, appendMode bool) convert.Params {
	if len(sources) == 0 {
		sources = cfg.SourceDirs()
	}
	return convert.Params{
		Sources:   sources,
		Output:    cfg.SeriesPath,
		Append:    appendMode,
		Options:   cfg.SeriesOptions(),
		TimeUnit:  cfg.TimeUnit,
		ReportDir: cfg.DataDir,
	}
}
