//go:build wireinject
// +build wireinject

package main

import (
	"sol-data/internal/app"

	"github.com/google/wire"
)

// InitializeApp builds App (Config + fetch client + export saver) via Wire.
func InitializeApp() (*App, error) {
	wire.Build(
		app.ProvideConfig,
		app.ProvideFetchClient,
		app.ProvidePacketSaver,
		wire.Struct(new(App), "Config", "Fetch", "Saver"),
	)
	return nil, nil
}
