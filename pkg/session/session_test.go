package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/railtracker/pkg/location"
	"github.com/travigo/railtracker/pkg/railway"
	"github.com/travigo/railtracker/pkg/railwaydb"
	"github.com/travigo/railtracker/pkg/serial"
	"github.com/travigo/railtracker/pkg/sink"
	"github.com/travigo/railtracker/pkg/tracker"
)

const testLine = railway.RailwayID("Test.Line")

var testStart = time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)

func testIndex(t *testing.T) *railwaydb.MemoryIndex {
	t.Helper()

	line := &railway.Railway{
		ID:         testLine,
		Stations:   []railway.StationID{"Test.Line.A", "Test.Line.B", "Test.Line.C"},
		Ascending:  railway.RailDirectionNorthbound,
		Descending: railway.RailDirectionSouthbound,
	}

	var stations []*railway.Station
	for i, id := range line.Stations {
		stations = append(stations, &railway.Station{
			ID:        id,
			RailwayID: testLine,
			Order:     i + 1,
			Latitude:  35.60 + float64(i)*0.02,
			Longitude: 139.70,
		})
	}

	var track []railway.Coordinate
	for i := 0; i <= 60; i++ {
		track = append(track, railway.Coordinate{ID: railway.CoordinateID(i + 1), Latitude: 35.59 + float64(i)*0.001, Longitude: 139.70})
	}

	index, err := railwaydb.NewMemoryIndex([]*railway.Railway{line}, stations, map[railway.RailwayID][]railway.Coordinate{testLine: track})
	require.NoError(t, err)

	return index
}

// northbound returns count fixes riding north along the test line at 15 m/s
func northbound(count int) []location.Fix {
	fixes := make([]location.Fix, count)
	for i := range fixes {
		fixes[i] = location.Fix{
			ID:        uuid.New(),
			Latitude:  35.605 + float64(i)*0.001,
			Longitude: 139.70,
			Timestamp: testStart.Add(time.Duration(i*10) * time.Second),
			Speed:     location.Some(15),
			Course:    location.Some(0),
		}
	}
	return fixes
}

func collect(t *testing.T, s *Session) []*tracker.TrackingResult {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var results []*tracker.TrackingResult
	for result := range s.Results(ctx) {
		results = append(results, result)
	}
	require.NoError(t, ctx.Err())

	return results
}

type recordingSink struct {
	mutex    sync.Mutex
	fixes    []uuid.UUID
	sessions []string
	err      error
}

func (r *recordingSink) Name() string {
	return "recording"
}

func (r *recordingSink) Publish(ctx context.Context, sessionID string, result *tracker.TrackingResult) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.fixes = append(r.fixes, result.Fix.ID)
	r.sessions = append(r.sessions, sessionID)
	return r.err
}

type recordingObserver struct {
	mutex     sync.Mutex
	processed int
	published map[string]int
	failed    map[string]int
	opened    int
	closed    int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{published: map[string]int{}, failed: map[string]int{}}
}

func (r *recordingObserver) FixProcessed(time.Duration) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.processed++
}

func (r *recordingObserver) QueryFailed(string)                   {}
func (r *recordingObserver) InvariantViolated(string)             {}
func (r *recordingObserver) PhaseTransition(tracker.StationPhase) {}

func (r *recordingObserver) ResultPublished(sinkName string, err error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if err != nil {
		r.failed[sinkName]++
	} else {
		r.published[sinkName]++
	}
}

func (r *recordingObserver) SessionOpened() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.opened++
}

func (r *recordingObserver) SessionClosed() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.closed++
}

func (r *recordingObserver) counts() (int, int) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.opened, r.closed
}

func TestSessionResultsInSubmissionOrder(t *testing.T) {
	fixes := northbound(20)

	s := Start(context.Background(), "trip", testIndex(t), DefaultOptions())
	for _, fix := range fixes {
		require.NoError(t, s.Submit(fix))
	}
	go s.Close()

	results := collect(t, s)
	require.Len(t, results, len(fixes))
	for i, result := range results {
		assert.Equal(t, fixes[i].ID, result.Fix.ID)
	}

	assert.Empty(t, results[0].Candidates)
	assert.Equal(t, []railway.RailwayDirection{{RailwayID: testLine, Direction: railway.Ascending}}, results[len(results)-1].Candidates)
}

func TestSessionResetStartsNewTrip(t *testing.T) {
	fixes := northbound(6)

	s := Start(context.Background(), "trip", testIndex(t), DefaultOptions())
	for _, fix := range fixes[:5] {
		require.NoError(t, s.Submit(fix))
	}
	require.NoError(t, s.Reset())
	require.NoError(t, s.Submit(fixes[5]))
	go s.Close()

	results := collect(t, s)
	require.Len(t, results, 6)

	assert.NotEmpty(t, results[4].Candidates)
	assert.Empty(t, results[5].Candidates)
	assert.Empty(t, results[5].StationPhaseHistories)
}

func TestSessionResetClearsLatestResult(t *testing.T) {
	previousTrip := northbound(5)
	nextTrip := northbound(2)
	for i := range nextTrip {
		nextTrip[i].Timestamp = testStart.Add(-time.Hour + time.Duration(i)*time.Second)
	}

	latest := sink.NewLatestStore()
	options := DefaultOptions()
	options.Sinks = []sink.Sink{latest}

	s := Start(context.Background(), "trip", testIndex(t), options)
	for _, fix := range previousTrip {
		require.NoError(t, s.Submit(fix))
	}
	require.NoError(t, s.Reset())
	for _, fix := range nextTrip {
		require.NoError(t, s.Submit(fix))
	}
	s.Close()

	stored, ok := latest.Get("trip")
	require.True(t, ok)
	assert.Equal(t, nextTrip[1].ID, stored.View.Fix.ID)
}

func TestSessionPublishesToSinks(t *testing.T) {
	fixes := northbound(8)
	recording := &recordingSink{}
	failing := &recordingSink{err: errors.New("broker unavailable")}
	latest := sink.NewLatestStore()
	observer := newRecordingObserver()

	options := DefaultOptions()
	options.Sinks = []sink.Sink{recording, latest, failing}
	options.Observer = observer

	s := Start(context.Background(), "trip", testIndex(t), options)
	for _, fix := range fixes {
		require.NoError(t, s.Submit(fix))
	}
	s.Close()

	for i, fix := range fixes {
		assert.Equal(t, fix.ID, recording.fixes[i])
	}
	assert.Len(t, failing.fixes, len(fixes))

	stored, ok := latest.Get("trip")
	require.True(t, ok)
	assert.Equal(t, fixes[len(fixes)-1].ID, stored.View.Fix.ID)

	observer.mutex.Lock()
	assert.Equal(t, len(fixes), observer.processed)
	assert.Equal(t, len(fixes), observer.published["latest"])
	assert.Equal(t, len(fixes), observer.failed["recording"])
	observer.mutex.Unlock()

	assert.Eventually(t, func() bool {
		opened, closed := observer.counts()
		return opened == 1 && closed == 1
	}, time.Second, 10*time.Millisecond)
}

func TestSessionSubmitAfterClose(t *testing.T) {
	s := Start(context.Background(), "trip", testIndex(t), DefaultOptions())
	s.Close()

	assert.ErrorIs(t, s.Submit(northbound(1)[0]), serial.ErrClosed)
	assert.ErrorIs(t, s.Reset(), serial.ErrClosed)
}

func TestSessionCancelStopsPublishing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	recording := &recordingSink{}
	options := DefaultOptions()
	options.Sinks = []sink.Sink{recording}

	s := Start(ctx, "trip", testIndex(t), options)
	_ = s.Submit(northbound(1)[0])

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("session did not stop after cancel")
	}

	recording.mutex.Lock()
	defer recording.mutex.Unlock()
	assert.Empty(t, recording.fixes)
}
