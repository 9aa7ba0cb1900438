package main

import (
	"sol-data/internal/app"
	"sol-data/internal/fetch"
	"sol-data/internal/saver"
)

// App holds application dependencies built by Wire.
type App struct {
	Config *app.Config
	Fetch  *fetch.Client
	Saver  saver.PacketSaver
}
