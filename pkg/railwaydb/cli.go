package railwaydb

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/travigo/railtracker/pkg/database"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "railwaydb",
		Usage: "Railway reference data",
		Subcommands: []*cli.Command{
			{
				Name:  "import",
				Usage: "import a YAML railway dataset into a new SQLite database or MongoDB",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "dataset",
						Usage:    "YAML dataset file",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "sqlite",
						Usage: "path of the SQLite database to create",
					},
					&cli.BoolFlag{
						Name:  "mongodb",
						Usage: "write the dataset into the railway collections of MongoDB",
					},
				},
				Action: func(c *cli.Context) error {
					dataset, err := LoadDataset(c.String("dataset"))
					if err != nil {
						return err
					}

					if path := c.String("sqlite"); path != "" {
						if _, err := os.Stat(path); err == nil {
							return fmt.Errorf("%s already exists", path)
						}

						db, err := sql.Open("sqlite", path)
						if err != nil {
							return err
						}
						defer db.Close()

						if err := WriteSQLite(c.Context, db, dataset); err != nil {
							return err
						}
						log.Info().Str("path", path).Int("railways", len(dataset.Railways)).Msg("Imported railway dataset into SQLite")
					}

					if c.Bool("mongodb") {
						if err := database.Connect(); err != nil {
							return err
						}
						defer database.Disconnect()

						if err := WriteMongo(c.Context, dataset); err != nil {
							return err
						}
						log.Info().Int("railways", len(dataset.Railways)).Msg("Imported railway dataset into MongoDB")
					}

					return nil
				},
			},
		},
	}
}
