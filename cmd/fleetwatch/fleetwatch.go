package main

import (
	"os"
	"time"

	"github.com/fleetwatch/fleetwatch/pkg/archiver"
	"github.com/fleetwatch/fleetwatch/pkg/feeder"
	"github.com/fleetwatch/fleetwatch/pkg/recorder"
	"github.com/fleetwatch/fleetwatch/pkg/tracker"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	_ "time/tzdata"
)

func main() {
	if os.Getenv("FLEETWATCH_LOG_FORMAT") != "JSON" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	if os.Getenv("FLEETWATCH_DEBUG") == "YES" {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	app := &cli.App{
		Name:        "fleetwatch",
		Description: "Single binary of truth for Fleetwatch - runs all the services",

		Commands: []*cli.Command{
			tracker.RegisterCLI(),
			feeder.RegisterCLI(),
			recorder.RegisterCLI(),
			archiver.RegisterCLI(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal().Err(err).Send()
	}
}
