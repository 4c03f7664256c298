package replay

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"runtime"

	"github.com/kr/pretty"
	"github.com/rs/zerolog/log"
	"github.com/travigo/railtracker/pkg/railwaydb"
	"github.com/travigo/railtracker/pkg/session"
	"github.com/travigo/railtracker/pkg/tracker"
	"github.com/urfave/cli/v2"
)

var sourceFlags = []cli.Flag{
	&cli.StringFlag{
		Name:     "railway-db",
		Usage:    "railway reference data: SQLite database, YAML dataset or \"mongodb\"",
		EnvVars:  []string{"RAILTRACKER_RAILWAY_DB"},
		Required: true,
	},
	&cli.StringFlag{
		Name:  "session-db",
		Usage: "SQLite database of recorded sessions",
	},
	&cli.StringSliceFlag{
		Name:  "session",
		Usage: "session of the session database to replay, all when omitted",
	},
	&cli.StringSliceFlag{
		Name:  "csv",
		Usage: "fix CSV file replayed as one trip named after the file",
	},
	&cli.StringSliceFlag{
		Name:  "gtfsrt",
		Usage: "GTFS-RT VehiclePositions feed replayed as one trip per vehicle",
	},
}

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "replay",
		Usage: "Run recorded trips through the railway tracker",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "replay trips and write every result as a JSON line",
				Flags: append([]cli.Flag{
					&cli.IntFlag{
						Name:  "workers",
						Value: runtime.NumCPU(),
						Usage: "trips replayed concurrently",
					},
					&cli.StringFlag{
						Name:  "output",
						Usage: "output file, stdout when omitted",
					},
					&cli.BoolFlag{
						Name:  "detail",
						Usage: "include scores and station phase histories",
					},
				}, sourceFlags...),
				Action: func(c *cli.Context) error {
					index, err := railwaydb.Open(c.String("railway-db"))
					if err != nil {
						return err
					}

					trips, err := LoadTrips(c.Context, sourcesFromFlags(c))
					if err != nil {
						return err
					}

					options := session.DefaultOptions()
					options.Config = tracker.GetConfig()

					all, err := session.ReplayAll(c.Context, index, trips, c.Int("workers"), options)
					if err != nil {
						return err
					}

					var output io.Writer = os.Stdout
					if path := c.String("output"); path != "" {
						file, err := os.Create(path)
						if err != nil {
							return err
						}
						defer file.Close()
						output = file
					}

					buffered := bufio.NewWriter(output)
					if err := WriteResults(buffered, all, c.Bool("detail")); err != nil {
						return err
					}

					for _, tripResults := range all {
						logSummary(tripResults)
					}

					return buffered.Flush()
				},
			},
			{
				Name:  "inspect",
				Usage: "replay trips and pretty print every result",
				Flags: sourceFlags,
				Action: func(c *cli.Context) error {
					index, err := railwaydb.Open(c.String("railway-db"))
					if err != nil {
						return err
					}

					trips, err := LoadTrips(c.Context, sourcesFromFlags(c))
					if err != nil {
						return err
					}

					options := session.DefaultOptions()
					options.Config = tracker.GetConfig()

					for _, trip := range trips {
						results, err := session.Replay(c.Context, index, trip, options)
						if err != nil {
							return err
						}

						for _, result := range results {
							pretty.Println(trip.SessionID, result.View())
						}
					}

					return nil
				},
			},
		},
	}
}

func sourcesFromFlags(c *cli.Context) Sources {
	return Sources{
		SessionDB: c.String("session-db"),
		Sessions:  c.StringSlice("session"),
		CSV:       c.StringSlice("csv"),
		GTFSRT:    c.StringSlice("gtfsrt"),
	}
}

func jsonLineEncoder(writer io.Writer) *json.Encoder {
	encoder := json.NewEncoder(writer)
	encoder.SetEscapeHTML(false)
	return encoder
}

func logSummary(tripResults session.TripResults) {
	event := log.Info().Str("session", tripResults.SessionID).Int("fixes", len(tripResults.Results))

	if len(tripResults.Results) > 0 {
		last := tripResults.Results[len(tripResults.Results)-1]
		if candidate, focus, ok := last.Focus(); ok {
			event = event.Str("railway", candidate.String()).Str("station", string(focus.StationID)).Str("phase", string(focus.Phase))
		}
	}

	event.Msg("Replayed trip")
}
