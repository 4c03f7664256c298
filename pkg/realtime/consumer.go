package realtime

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/rs/zerolog/log"
	"github.com/travigo/railtracker/pkg/location"
	"github.com/travigo/railtracker/pkg/redis_client"
)

const batchSize = 200

// Submitter routes fixes to the tracking session they belong to
type Submitter interface {
	Submit(sessionID string, fix location.Fix) error
	Reset(sessionID string) error
}

var errInvalidMessage = errors.New("location message has neither fix nor reset")

// StartConsumer opens the location queue and consumes it with a single batch
// consumer so that every session sees its fixes in queue order
func StartConsumer(submitter Submitter) (rmq.Queue, error) {
	log.Info().Msg("Starting location queue consumer")

	queue, err := redis_client.QueueConnection.OpenQueue(QueueName)
	if err != nil {
		return nil, err
	}
	if err := queue.StartConsuming(2*batchSize, time.Second); err != nil {
		return nil, err
	}

	if _, err := queue.AddBatchConsumer(QueueName+"-consumer", batchSize, time.Second, NewBatchConsumer(submitter)); err != nil {
		return nil, err
	}

	return queue, nil
}

type BatchConsumer struct {
	submitter Submitter
}

func NewBatchConsumer(submitter Submitter) *BatchConsumer {
	return &BatchConsumer{submitter: submitter}
}

func (consumer *BatchConsumer) Consume(batch rmq.Deliveries) {
	startTime := time.Now()
	rejected := 0

	for _, delivery := range batch {
		if err := consumer.handle(delivery.Payload()); err != nil {
			log.Error().Err(err).Msg("Failed to handle location message")
			rejected++

			if err := delivery.Reject(); err != nil {
				log.Error().Err(err).Msg("Failed to reject location message")
			}
			continue
		}

		if err := delivery.Ack(); err != nil {
			log.Error().Err(err).Msg("Failed to ack location message")
		}
	}

	log.Debug().
		Int("length", len(batch)).
		Int("rejected", rejected).
		Str("time", time.Since(startTime).String()).
		Msg("Consumed location batch")
}

func (consumer *BatchConsumer) handle(payload string) error {
	var message LocationMessage
	if err := json.Unmarshal([]byte(payload), &message); err != nil {
		return err
	}

	switch {
	case message.Reset:
		return consumer.submitter.Reset(message.SessionID)
	case message.Fix != nil:
		return consumer.submitter.Submit(message.SessionID, *message.Fix)
	default:
		return errInvalidMessage
	}
}
