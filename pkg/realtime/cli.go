package realtime

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/railtracker/pkg/api"
	"github.com/travigo/railtracker/pkg/elastic_client"
	"github.com/travigo/railtracker/pkg/fixsource"
	"github.com/travigo/railtracker/pkg/metrics"
	"github.com/travigo/railtracker/pkg/railwaydb"
	"github.com/travigo/railtracker/pkg/redis_client"
	"github.com/travigo/railtracker/pkg/serial"
	"github.com/travigo/railtracker/pkg/session"
	"github.com/travigo/railtracker/pkg/sink"
	"github.com/travigo/railtracker/pkg/tracker"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "realtime",
		Usage: "Live tracking of fixes arriving on the location queue",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run an instance of the live tracker with its web api",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "railway-db",
						Usage:   "railway reference data: SQLite database, YAML dataset or \"mongodb\"",
						EnvVars: []string{"RAILTRACKER_RAILWAY_DB"},
						Value:   "railway.sqlite",
					},
					&cli.StringFlag{
						Name:  "listen",
						Value: ":8080",
						Usage: "listen target for the web server",
					},
					&cli.DurationFlag{
						Name:  "idle-timeout",
						Value: 15 * time.Minute,
						Usage: "close sessions that receive no fix for this long",
					},
					&cli.IntFlag{
						Name:  "buffer",
						Value: 16,
						Usage: "unread results kept per session before the oldest are dropped",
					},
					&cli.DurationFlag{
						Name:  "cache-expiration",
						Value: time.Hour,
						Usage: "redis cache expiration of railway lookups, 0 disables the cache",
					},
					&cli.BoolFlag{
						Name:  "nats",
						Usage: "publish every result to NATS",
					},
					&cli.BoolFlag{
						Name:  "elastic",
						Usage: "record focus station changes in Elasticsearch",
					},
				},
				Action: func(c *cli.Context) error {
					if err := redis_client.Connect(); err != nil {
						return err
					}

					index, err := railwaydb.Open(c.String("railway-db"))
					if err != nil {
						return err
					}
					if expiration := c.Duration("cache-expiration"); expiration > 0 {
						index = railwaydb.NewCachedIndex(index, redis_client.Client, expiration)
					}

					collector := metrics.NewCollector()
					latest := sink.NewLatestStore()
					sinks := []sink.Sink{latest}

					if c.Bool("nats") {
						natsSink, err := sink.NewNATSSink()
						if err != nil {
							return err
						}
						defer natsSink.Close()
						sinks = append(sinks, natsSink)
					}

					var elasticSink *sink.ElasticSink
					if c.Bool("elastic") {
						if err := elastic_client.Connect(true); err != nil {
							return err
						}
						elasticSink = sink.NewElasticSink()
						sinks = append(sinks, elasticSink)
					}

					ctx, cancel := context.WithCancel(c.Context)
					defer cancel()

					manager := session.NewManager(ctx, index, session.Options{
						Config:   tracker.GetConfig(),
						Buffer:   serial.BufferingNewest(c.Int("buffer")),
						Sinks:    sinks,
						Observer: collector,
					}, c.Duration("idle-timeout"))
					if elasticSink != nil {
						manager.OnClose = elasticSink.Forget
					}

					go manager.Run(ctx)

					if _, err := StartConsumer(manager); err != nil {
						return err
					}

					go StartCleaner(ctx)

					go func() {
						err := api.SetupServer(c.String("listen"), api.Dependencies{
							Latest:     latest,
							Index:      index,
							Metrics:    collector,
							Health:     redisHealth,
							QueueStats: NewStatsHandler(redis_client.QueueConnection),
						})
						if err != nil {
							log.Fatal().Err(err).Msg("Web API stopped")
						}
					}()

					signals := make(chan os.Signal, 1)
					signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
					defer signal.Stop(signals)

					<-signals // wait for signal
					go func() {
						<-signals // hard exit on second signal (in case shutdown gets stuck)
						os.Exit(1)
					}()

					<-redis_client.QueueConnection.StopAllConsuming() // wait for all Consume() calls to finish

					manager.Close()
					elastic_client.WaitUntilQueueEmpty()

					return nil
				},
			},
			{
				Name:  "enqueue",
				Usage: "push the fixes of a CSV file onto the location queue",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "csv",
						Usage:    "fix CSV file",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "session",
						Usage:    "session the fixes belong to",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "reset",
						Usage: "start a new trip before the first fix",
					},
					&cli.DurationFlag{
						Name:  "interval",
						Usage: "pause between fixes, to simulate a live device",
					},
				},
				Action: func(c *cli.Context) error {
					if err := redis_client.Connect(); err != nil {
						return err
					}

					file, err := os.Open(c.String("csv"))
					if err != nil {
						return err
					}
					defer file.Close()

					fixes, err := fixsource.ReadCSV(file)
					if err != nil {
						return err
					}

					queue, err := redis_client.QueueConnection.OpenQueue(QueueName)
					if err != nil {
						return err
					}

					sessionID := c.String("session")
					if c.Bool("reset") {
						if err := PublishReset(queue, sessionID); err != nil {
							return err
						}
					}

					for i, fix := range fixes {
						if i > 0 && c.Duration("interval") > 0 {
							time.Sleep(c.Duration("interval"))
						}
						if err := Publish(queue, sessionID, fix); err != nil {
							return fmt.Errorf("publish fix %s: %w", fix.ID, err)
						}
					}

					log.Info().Str("session", sessionID).Int("fixes", len(fixes)).Msg("Enqueued fixes")

					return nil
				},
			},
			{
				Name:  "cleaner",
				Usage: "run the queue cleaner for the location queue",
				Action: func(c *cli.Context) error {
					if err := redis_client.Connect(); err != nil {
						return err
					}

					ctx, cancel := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
					defer cancel()

					StartCleaner(ctx)

					return nil
				},
			},
		},
	}
}

func redisHealth(ctx context.Context) error {
	return redis_client.Client.Ping(ctx).Err()
}

