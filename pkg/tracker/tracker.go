package tracker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/railtracker/pkg/location"
	"github.com/travigo/railtracker/pkg/railway"
)

// Tracker infers the railway, direction and focus station of a rider from an
// ordered stream of fixes. It is not safe for concurrent use: a single owner
// (normally a serial.Processor worker) must make every call.
type Tracker struct {
	config   Config
	observer Observer

	proximity *ProximityScorer
	direction *DirectionScorer
	scores    *ScoreAccumulator
	stations  *StationPhaseTracker
}

type Option func(*Tracker)

func WithConfig(config Config) Option {
	return func(t *Tracker) {
		t.config = config
	}
}

func WithObserver(observer Observer) Option {
	return func(t *Tracker) {
		if observer != nil {
			t.observer = observer
		}
	}
}

func NewTracker(index railway.Index, options ...Option) *Tracker {
	t := &Tracker{
		config:   DefaultConfig,
		observer: nopObserver{},
	}
	for _, option := range options {
		option(t)
	}

	t.proximity = NewProximityScorer(index, t.config)
	t.direction = NewDirectionScorer(index, t.config)
	t.scores = NewScoreAccumulator(t.config)
	t.stations = NewStationPhaseTracker(index, t.config, t.observer)

	return t
}

// Process runs one fix through every stage. Spatial index failures never abort
// the session: the fix is returned without railway signal and state is untouched.
func (t *Tracker) Process(ctx context.Context, fix location.Fix) *TrackingResult {
	startTime := time.Now()
	defer func() {
		t.observer.FixProcessed(time.Since(startTime))
	}()

	result := &TrackingResult{
		Fix:           fix,
		Candidates:    []railway.RailwayDirection{},
		Proximity:     map[railway.RailwayID]float64{},
		Coordinates:   map[railway.RailwayID]railway.Coordinate{},
		Direction:     map[railway.RailwayID]float64{},
		FocusStations: map[railway.RailwayDirection]FocusStation{},
	}

	proximity, err := t.proximity.Score(ctx, fix)
	if err != nil {
		t.queryFailed("proximity", fix, err)
		result.StationPhaseHistories = t.stations.PhaseHistories()
		return result
	}

	direction, err := t.direction.Score(ctx, fix, proximity.RailwayIDs())
	if err != nil {
		t.queryFailed("direction", fix, err)
		result.StationPhaseHistories = t.stations.PhaseHistories()
		return result
	}

	result.Proximity = proximity.Scores
	result.Coordinates = proximity.Coordinates
	result.Direction = direction
	result.Candidates = t.scores.Accumulate(fix, proximity.Scores, direction)

	focus, err := t.stations.Process(ctx, fix, result.Candidates)
	if err != nil {
		t.queryFailed("stations", fix, err)
	}
	result.FocusStations = focus
	result.StationPhaseHistories = t.stations.PhaseHistories()

	return result
}

// Reset discards all running scores and station state so the next fix starts a new session
func (t *Tracker) Reset() {
	t.scores.Reset()
	t.stations.Reset()
}

// Scores returns a copy of the running scores
func (t *Tracker) Scores() RunningScores {
	return t.scores.Scores()
}

// LocationHistories returns a copy of the per-station location histories
func (t *Tracker) LocationHistories() map[railway.StationDirection]*StationLocationHistory {
	return t.stations.LocationHistories()
}

func (t *Tracker) Config() Config {
	return t.config
}

func (t *Tracker) queryFailed(stage string, fix location.Fix, err error) {
	t.observer.QueryFailed(stage)
	log.Error().Err(err).Str("stage", stage).Str("fix", fix.ID.String()).Msg("Railway index query failed")
}
