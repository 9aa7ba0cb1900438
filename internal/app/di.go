package app

import (
	"fmt"

	"sol-data/internal/fetch"
	"sol-data/internal/saver"
)

// ProvideConfig loads config from environment (for Wire).
func ProvideConfig() (*Config, error) {
	return LoadConfig()
}

// ProvidePacketSaver creates PacketSaver from config (for Wire).
// Returns error if ExportFormat is not supported.
func ProvidePacketSaver(cfg *Config) (saver.PacketSaver, error) {
	ps := saver.NewPacketSaver(cfg.ExportFormat)
	if ps == nil {
		return nil, fmt.Errorf("unsupported EXPORT_FORMAT %q (use: csv, parquet, json)", cfg.ExportFormat)
	}
	return ps, nil
}

// ProvideFetchClient creates the archive download client (for Wire).
func ProvideFetchClient(cfg *Config) *fetch.Client {
	return fetch.NewClient(cfg.FetchRetries, cfg.FetchRPS)
}
