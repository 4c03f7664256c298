package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/travigo/railtracker/pkg/elastic_client"
	"github.com/travigo/railtracker/pkg/railway"
	"github.com/travigo/railtracker/pkg/tracker"
)

type FocusEvent struct {
	SessionID string
	Timestamp time.Time
	Railway   railway.RailwayID
	Direction railway.TravelDirection
	Station   railway.StationID
	Phase     tracker.FocusPhase
	Latitude  float64
	Longitude float64
}

// ElasticSink records a FocusEvent whenever the focus station of a railway
// direction changes within a session
type ElasticSink struct {
	index func(indexName string, document io.ReadSeeker)

	mutex sync.Mutex
	focus map[string]map[railway.RailwayDirection]focusKey
}

type focusKey struct {
	station railway.StationID
	phase   tracker.FocusPhase
}

func NewElasticSink() *ElasticSink {
	return &ElasticSink{
		index: elastic_client.IndexRequest,
		focus: map[string]map[railway.RailwayDirection]focusKey{},
	}
}

func (e *ElasticSink) Name() string {
	return "elastic"
}

func (e *ElasticSink) Publish(ctx context.Context, sessionID string, result *tracker.TrackingResult) error {
	for _, event := range e.changes(sessionID, result) {
		document, err := json.Marshal(event)
		if err != nil {
			return err
		}

		e.index(IndexName(event.Timestamp), bytes.NewReader(document))
	}

	return nil
}

// Reset starts a new trip with no focus state, so its first focus is always recorded
func (e *ElasticSink) Reset(ctx context.Context, sessionID string) error {
	e.Forget(sessionID)

	return nil
}

// Forget drops the focus state of a finished session
func (e *ElasticSink) Forget(sessionID string) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	delete(e.focus, sessionID)
}

func (e *ElasticSink) changes(sessionID string, result *tracker.TrackingResult) []FocusEvent {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	previous, ok := e.focus[sessionID]
	if !ok {
		previous = map[railway.RailwayDirection]focusKey{}
		e.focus[sessionID] = previous
	}

	var events []FocusEvent
	for _, candidate := range result.Candidates {
		focus, ok := result.FocusStations[candidate]
		if !ok {
			continue
		}

		key := focusKey{station: focus.StationID, phase: focus.Phase}
		if previous[candidate] == key {
			continue
		}
		previous[candidate] = key

		events = append(events, FocusEvent{
			SessionID: sessionID,
			Timestamp: result.Fix.Timestamp,
			Railway:   candidate.RailwayID,
			Direction: candidate.Direction,
			Station:   focus.StationID,
			Phase:     focus.Phase,
			Latitude:  result.Fix.Latitude,
			Longitude: result.Fix.Longitude,
		})
	}

	return events
}

// IndexName is the weekly focus events index
func IndexName(timestamp time.Time) string {
	year, week := timestamp.ISOWeek()
	return fmt.Sprintf("railtracker-focus-events-%d-%d", year, week)
}
