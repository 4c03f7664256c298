package tracker

import (
	"github.com/travigo/railtracker/pkg/location"
	"github.com/travigo/railtracker/pkg/railway"
)

// TrackingResult is the best-effort estimate produced for one fix
type TrackingResult struct {
	Fix location.Fix

	// Railway directions ranked by running proximity
	Candidates []railway.RailwayDirection

	Proximity   map[railway.RailwayID]float64
	Coordinates map[railway.RailwayID]railway.Coordinate
	Direction   map[railway.RailwayID]float64

	// Focus stations derived from this fix. A railway direction whose stations have
	// no phase yet is absent.
	FocusStations         map[railway.RailwayDirection]FocusStation
	StationPhaseHistories map[railway.StationDirection]PhaseHistory
}

// Focus returns the focus station of the best ranked candidate that has one
func (r *TrackingResult) Focus() (railway.RailwayDirection, FocusStation, bool) {
	for _, candidate := range r.Candidates {
		if focus, ok := r.FocusStations[candidate]; ok {
			return candidate, focus, true
		}
	}

	return railway.RailwayDirection{}, FocusStation{}, false
}
