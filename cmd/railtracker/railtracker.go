package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/travigo/railtracker/pkg/api"
	"github.com/travigo/railtracker/pkg/railwaydb"
	"github.com/travigo/railtracker/pkg/realtime"
	"github.com/travigo/railtracker/pkg/replay"
	"github.com/urfave/cli/v2"

	_ "time/tzdata"
)

func main() {
	// A local .env is optional, the environment takes precedence
	_ = godotenv.Load()

	if os.Getenv("RAILTRACKER_LOG_FORMAT") != "JSON" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	if os.Getenv("RAILTRACKER_DEBUG") == "YES" {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	app := &cli.App{
		Name:        "railtracker",
		Description: "Matches GPS fixes to railway lines and tracks the stations a trip passes",

		Commands: []*cli.Command{
			replay.RegisterCLI(),
			realtime.RegisterCLI(),
			api.RegisterCLI(),
			railwaydb.RegisterCLI(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal().Err(err).Send()
	}
}
