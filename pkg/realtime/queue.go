package realtime

import (
	"encoding/json"

	"github.com/adjust/rmq/v5"
	"github.com/travigo/railtracker/pkg/location"
)

const QueueName = "location-queue"

// LocationMessage is one queued instruction for a tracking session: a fix,
// or a reset when Reset is set
type LocationMessage struct {
	SessionID string        `json:"sessionId"`
	Fix       *location.Fix `json:"fix,omitempty"`
	Reset     bool          `json:"reset,omitempty"`
}

func Publish(queue rmq.Queue, sessionID string, fix location.Fix) error {
	return publish(queue, LocationMessage{SessionID: sessionID, Fix: &fix})
}

func PublishReset(queue rmq.Queue, sessionID string) error {
	return publish(queue, LocationMessage{SessionID: sessionID, Reset: true})
}

func publish(queue rmq.Queue, message LocationMessage) error {
	messageJSON, err := json.Marshal(message)
	if err != nil {
		return err
	}

	return queue.PublishBytes(messageJSON)
}
