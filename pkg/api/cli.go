package api

import (
	"github.com/rs/zerolog/log"
	"github.com/travigo/railtracker/pkg/railwaydb"
	"github.com/travigo/railtracker/pkg/sink"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Provides the web API over results published by live trackers",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run web api server mirroring results from NATS",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Value: ":8080",
						Usage: "listen target for the web server",
					},
					&cli.StringFlag{
						Name:    "railway-db",
						Usage:   "railway reference data served under /railtracker/railways",
						EnvVars: []string{"RAILTRACKER_RAILWAY_DB"},
					},
				},
				Action: func(c *cli.Context) error {
					natsSink, err := sink.NewNATSSink()
					if err != nil {
						return err
					}
					defer natsSink.Close()

					latest := sink.NewLatestStore()
					if _, err := natsSink.Mirror(latest); err != nil {
						return err
					}

					dependencies := Dependencies{Latest: latest}
					if source := c.String("railway-db"); source != "" {
						dependencies.Index, err = railwaydb.Open(source)
						if err != nil {
							return err
						}
					}

					log.Info().Str("listen", c.String("listen")).Msg("Starting web API")

					return SetupServer(c.String("listen"), dependencies)
				},
			},
		},
	}
}
