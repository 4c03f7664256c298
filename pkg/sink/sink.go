package sink

import (
	"context"

	"github.com/travigo/railtracker/pkg/tracker"
)

// Sink receives every tracking result of a session, in order
type Sink interface {
	Name() string
	Publish(ctx context.Context, sessionID string, result *tracker.TrackingResult) error
}

// Resetter is implemented by sinks that keep per-session state. Reset is called
// in order with the results when a session starts a new trip.
type Resetter interface {
	Reset(ctx context.Context, sessionID string) error
}
