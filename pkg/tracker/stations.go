package tracker

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/travigo/railtracker/pkg/location"
	"github.com/travigo/railtracker/pkg/railway"
)

// StationPhaseTracker follows the rider past the stations of every candidate
// railway direction and derives the phase of each station and the focus station
type StationPhaseTracker struct {
	index    railway.Index
	config   Config
	observer Observer

	histories map[railway.StationDirection]*StationLocationHistory
	phases    map[railway.StationDirection]PhaseHistory
	focus     map[railway.RailwayDirection]FocusStation
}

func NewStationPhaseTracker(index railway.Index, config Config, observer Observer) *StationPhaseTracker {
	if observer == nil {
		observer = nopObserver{}
	}

	tracker := &StationPhaseTracker{
		index:    index,
		config:   config,
		observer: observer,
	}
	tracker.Reset()

	return tracker
}

func (s *StationPhaseTracker) Reset() {
	s.histories = map[railway.StationDirection]*StationLocationHistory{}
	s.phases = map[railway.StationDirection]PhaseHistory{}
	s.focus = map[railway.RailwayDirection]FocusStation{}
}

// Process applies the fix to every candidate and returns the focus stations derived for this fix.
// A candidate whose reference data cannot be loaded is skipped and reported in the returned error.
func (s *StationPhaseTracker) Process(ctx context.Context, fix location.Fix, candidates []railway.RailwayDirection) (map[railway.RailwayDirection]FocusStation, error) {
	focus := map[railway.RailwayDirection]FocusStation{}
	var errs []error

	for _, candidate := range candidates {
		ordered, err := s.orderedStations(ctx, candidate)
		if err != nil {
			errs = append(errs, fmt.Errorf("stations of %s: %w", candidate, err))
			continue
		}
		if len(ordered) == 0 {
			continue
		}

		s.accumulate(fix, candidate.Direction, ordered)
		s.derivePhases(fix, candidate, ordered)

		if station, ok := focusStation(ordered, candidate.Direction, s.phases); ok {
			s.focus[candidate] = station
			focus[candidate] = station
		}
	}

	return focus, errors.Join(errs...)
}

// orderedStations loads the stations of a railway in the order they are passed in the candidate direction
func (s *StationPhaseTracker) orderedStations(ctx context.Context, candidate railway.RailwayDirection) ([]*railway.Station, error) {
	line, err := s.index.RailwayByID(ctx, candidate.RailwayID)
	if err != nil {
		return nil, err
	}

	stations, err := s.index.StationsForRailway(ctx, candidate.RailwayID)
	if err != nil {
		return nil, err
	}

	stationsByID := map[railway.StationID]*railway.Station{}
	for _, station := range stations {
		stationsByID[station.ID] = station
	}

	ordered := make([]*railway.Station, 0, len(line.Stations))
	for _, stationID := range line.OrderedStations(candidate.Direction) {
		station, ok := stationsByID[stationID]
		if !ok {
			s.violation("missing_station", log.Warn().Str("railway", string(candidate.RailwayID)).Str("station", string(stationID)))
			continue
		}
		ordered = append(ordered, station)
	}

	return ordered, nil
}

// accumulate places the fix into the history of at most one station, earlier
// stations in the direction of travel winning. The fix may also mark the
// departure of any number of stations it is moving away from.
func (s *StationPhaseTracker) accumulate(fix location.Fix, direction railway.TravelDirection, ordered []*railway.Station) {
	heading, ok := fix.Heading()
	if !ok {
		return
	}

	point := fix.Point()

	var fallback *railway.StationDirection
	fallbackDistance := math.Inf(1)

	for i, station := range ordered {
		key := railway.StationDirection{StationID: station.ID, Direction: direction}
		history := s.histories[key]
		distance := point.Distance(station.Point())

		if distance <= s.config.VisitingRadius {
			history = s.history(key)
			history.Visiting = append(history.Visiting, fix)

			// There is nowhere to depart to from the last station
			if i == len(ordered)-1 {
				history.setDeparture(fix)
			}
			break
		}

		toward, ok := point.VectorTo(station.Point()).Unit()
		if !ok {
			continue
		}
		alignment := heading.Dot(toward)

		if distance <= s.config.ApproachingRadius && alignment > 0 {
			history = s.history(key)
			history.Approaching = append(history.Approaching, fix)
			break
		}

		if alignment < 0 {
			if history.hasVisiting() && history.hasApproaching() && !history.hasDeparture() {
				history.setDeparture(fix)
				continue
			}

			if history.acceptsFallbackDeparture() && distance < fallbackDistance {
				fallbackKey := key
				fallback = &fallbackKey
				fallbackDistance = distance
			}
		}
	}

	// Widely spaced stations may never see a visit, so the nearest station being
	// left behind stands in until some station on the line has departed
	if fallback != nil && !s.anyDeparture(direction, ordered) {
		s.history(*fallback).setDeparture(fix)
	}
}

func (s *StationPhaseTracker) anyDeparture(direction railway.TravelDirection, ordered []*railway.Station) bool {
	for _, station := range ordered {
		if s.histories[railway.StationDirection{StationID: station.ID, Direction: direction}].hasDeparture() {
			return true
		}
	}

	return false
}

func (s *StationPhaseTracker) violation(kind string, event *zerolog.Event) {
	s.observer.InvariantViolated(kind)
	event.Str("invariant", kind).Msg("Station tracking invariant violated")
}

func (s *StationPhaseTracker) history(key railway.StationDirection) *StationLocationHistory {
	history, ok := s.histories[key]
	if !ok {
		history = &StationLocationHistory{}
		s.histories[key] = history
	}

	return history
}

func (s *StationPhaseTracker) derivePhases(fix location.Fix, candidate railway.RailwayDirection, ordered []*railway.Station) {
	for i, station := range ordered {
		key := railway.StationDirection{StationID: station.ID, Direction: candidate.Direction}
		history, ok := s.histories[key]
		if !ok {
			continue
		}

		phase, ok := history.proposedPhase(i == len(ordered)-1, s.config)
		if !ok {
			s.violation("contradictory_history", log.Warn().
				Str("station", key.String()).
				Int("visiting", len(history.Visiting)).
				Int("approaching", len(history.Approaching)).
				Bool("departed", history.hasDeparture()))
			continue
		}

		phases := s.phases[key]
		err := phases.Append(phase, fix.Timestamp)
		switch {
		case err == nil:
			s.phases[key] = phases
			s.observer.PhaseTransition(phase)
			log.Debug().Str("railway", candidate.String()).Str("station", string(station.ID)).Str("phase", string(phase)).Msg("Station phase changed")
		case errors.Is(err, ErrDuplicatePhase):
		default:
			latest, _ := phases.Latest()
			s.violation("illegal_transition", log.Warn().
				Err(err).
				Str("station", key.String()).
				Str("from", string(latest.Phase)).
				Str("to", string(phase)))
		}
	}
}

// PhaseHistories returns a copy of every station phase history
func (s *StationPhaseTracker) PhaseHistories() map[railway.StationDirection]PhaseHistory {
	cloned := make(map[railway.StationDirection]PhaseHistory, len(s.phases))
	for key, history := range s.phases {
		cloned[key] = history.clone()
	}

	return cloned
}

// LocationHistories returns a copy of every station location history
func (s *StationPhaseTracker) LocationHistories() map[railway.StationDirection]*StationLocationHistory {
	cloned := make(map[railway.StationDirection]*StationLocationHistory, len(s.histories))
	for key, history := range s.histories {
		cloned[key] = history.clone()
	}

	return cloned
}

// FocusStations returns the last focus station derived for every railway direction
func (s *StationPhaseTracker) FocusStations() map[railway.RailwayDirection]FocusStation {
	cloned := make(map[railway.RailwayDirection]FocusStation, len(s.focus))
	for key, focus := range s.focus {
		cloned[key] = focus
	}

	return cloned
}
