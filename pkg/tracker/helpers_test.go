package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/travigo/railtracker/pkg/geo"
	"github.com/travigo/railtracker/pkg/location"
	"github.com/travigo/railtracker/pkg/railway"
	"github.com/travigo/railtracker/pkg/railwaydb"
)

const (
	testLine     = railway.RailwayID("Test.Line")
	testStationA = railway.StationID("Test.Line.A")
	testStationB = railway.StationID("Test.Line.B")
	testStationC = railway.StationID("Test.Line.C")

	testLongitude = 139.70
)

var testStart = time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)

var (
	ascending  = railway.RailwayDirection{RailwayID: testLine, Direction: railway.Ascending}
	descending = railway.RailwayDirection{RailwayID: testLine, Direction: railway.Descending}
)

// testIndex is a straight north-south line with three stations about 2.2km apart
// and a track vertex every 0.001 degrees of latitude
func testIndex(t *testing.T) *railwaydb.MemoryIndex {
	t.Helper()

	line := &railway.Railway{
		ID:         testLine,
		Title:      railway.Title{EN: "Test Line", JA: "テスト線"},
		Stations:   []railway.StationID{testStationA, testStationB, testStationC},
		Color:      "#00AA00",
		Ascending:  railway.RailDirectionNorthbound,
		Descending: railway.RailDirectionSouthbound,
	}

	stations := []*railway.Station{
		{ID: testStationA, RailwayID: testLine, Title: railway.Title{EN: "A"}, Order: 1, Latitude: 35.60, Longitude: testLongitude},
		{ID: testStationB, RailwayID: testLine, Title: railway.Title{EN: "B"}, Order: 2, Latitude: 35.62, Longitude: testLongitude},
		{ID: testStationC, RailwayID: testLine, Title: railway.Title{EN: "C"}, Order: 3, Latitude: 35.64, Longitude: testLongitude},
	}

	var track []railway.Coordinate
	for i := 0; i <= 60; i++ {
		track = append(track, railway.Coordinate{
			ID:        railway.CoordinateID(i + 1),
			Latitude:  35.59 + float64(i)*0.001,
			Longitude: testLongitude,
		})
	}

	index, err := railwaydb.NewMemoryIndex([]*railway.Railway{line}, stations, map[railway.RailwayID][]railway.Coordinate{testLine: track})
	require.NoError(t, err)

	return index
}

// onLine is a fix on the test line at latitude, seconds after testStart
func onLine(latitude float64, seconds int, speed float64, course float64) location.Fix {
	return location.Fix{
		ID:        uuid.New(),
		Latitude:  latitude,
		Longitude: testLongitude,
		Timestamp: testStart.Add(time.Duration(seconds) * time.Second),
		Speed:     location.Some(speed),
		Course:    location.Some(course),
	}
}

// northboundTrip rides from between A and B, stops at B and continues to the terminal C
func northboundTrip() []location.Fix {
	return []location.Fix{
		// creeping along, too slow for a usable heading
		onLine(35.6050, 0, 2, 0),
		onLine(35.6070, 10, 2, 0),
		onLine(35.6090, 20, 2, 0),
		// approaching B
		onLine(35.6160, 30, 15, 0),
		onLine(35.6165, 40, 15, 0),
		onLine(35.6170, 50, 15, 0),
		onLine(35.6175, 60, 15, 0),
		onLine(35.6180, 70, 15, 0),
		// at B
		onLine(35.6190, 80, 5, 0),
		onLine(35.6200, 90, 5, 0),
		onLine(35.6210, 100, 5, 0),
		// leaving B towards C
		onLine(35.6230, 110, 15, 0),
		onLine(35.6300, 120, 20, 0),
		// approaching and arriving at the terminal C
		onLine(35.6360, 130, 15, 0),
		onLine(35.6380, 140, 10, 0),
		onLine(35.6400, 150, 3, 0),
	}
}

type focusStep struct {
	Station railway.StationID
	Phase   FocusPhase
}

// focusSequence collapses consecutive repeats of the focus station of one railway direction
func focusSequence(results []*TrackingResult, candidate railway.RailwayDirection) []focusStep {
	var steps []focusStep

	for _, result := range results {
		focus, ok := result.FocusStations[candidate]
		if !ok {
			continue
		}

		step := focusStep{Station: focus.StationID, Phase: focus.Phase}
		if len(steps) > 0 && steps[len(steps)-1] == step {
			continue
		}
		steps = append(steps, step)
	}

	return steps
}

type recordingObserver struct {
	mu          sync.Mutex
	processed   int
	failures    map[string]int
	violations  map[string]int
	transitions map[StationPhase]int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{
		failures:    map[string]int{},
		violations:  map[string]int{},
		transitions: map[StationPhase]int{},
	}
}

func (r *recordingObserver) FixProcessed(time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed++
}

func (r *recordingObserver) QueryFailed(stage string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[stage]++
}

func (r *recordingObserver) InvariantViolated(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.violations[kind]++
}

func (r *recordingObserver) PhaseTransition(phase StationPhase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions[phase]++
}

var errIndexUnavailable = errors.New("railway index unavailable")

// failingIndex fails the spatial queries while failing is set
type failingIndex struct {
	railway.Index
	failing bool
}

func (f *failingIndex) NearestTrackPoints(ctx context.Context, point geo.Point, box geo.BoundingBox) ([]railway.TrackPoint, error) {
	if f.failing {
		return nil, errIndexUnavailable
	}
	return f.Index.NearestTrackPoints(ctx, point, box)
}

func (f *failingIndex) NearestStations(ctx context.Context, point geo.Point, railwayIDs []railway.RailwayID, limit int) ([]railway.StationMatch, error) {
	if f.failing {
		return nil, errIndexUnavailable
	}
	return f.Index.NearestStations(ctx, point, railwayIDs, limit)
}
