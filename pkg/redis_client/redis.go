package redis_client

import (
	"context"

	"github.com/adjust/rmq/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/travigo/railtracker/pkg/util"
)

var Client *redis.Client
var QueueConnection rmq.Connection

const defaultConnectionAddress = "localhost:6379"
const defaultDatabase = 0

func Connect() error {
	env := util.GetEnvironmentVariables()

	Client = redis.NewClient(&redis.Options{
		Addr:     util.EnvString(env, "RAILTRACKER_REDIS_ADDRESS", defaultConnectionAddress),
		Password: env["RAILTRACKER_REDIS_PASSWORD"],
		DB:       util.EnvInt(env, "RAILTRACKER_REDIS_DATABASE", defaultDatabase),
	})

	if err := Client.Ping(context.Background()).Err(); err != nil {
		return err
	}

	errChan := make(chan error, 10)
	go logQueueErrors(errChan)

	var err error
	QueueConnection, err = rmq.OpenConnectionWithRedisClient("railtracker", Client, errChan)
	if err != nil {
		return err
	}

	return nil
}

func logQueueErrors(errChan <-chan error) {
	for err := range errChan {
		switch err := err.(type) {
		case *rmq.HeartbeatError:
			if err.Count == rmq.HeartbeatErrorLimit {
				log.Error().Err(err).Msg("Queue heartbeat failed too often, consumers stopped")
			} else {
				log.Warn().Err(err).Msg("Queue heartbeat error")
			}
		case *rmq.ConsumeError:
			log.Error().Err(err).Msg("Queue consume error")
		case *rmq.DeliveryError:
			log.Error().Err(err).Msg("Queue delivery error")
		default:
			log.Error().Err(err).Msg("Queue error")
		}
	}
}
