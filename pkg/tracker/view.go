package tracker

import (
	"cmp"

	"github.com/travigo/railtracker/pkg/location"
	"github.com/travigo/railtracker/pkg/railway"
	"golang.org/x/exp/slices"
)

// ResultView is the serialisable form of a TrackingResult. The basic group is
// what a map or list display needs, detailed adds the scoring internals.
type ResultView struct {
	Fix        location.Fix    `json:"fix" groups:"basic"`
	Candidates []CandidateView `json:"candidates" groups:"basic"`

	Railways      []RailwayScoreView `json:"railways" groups:"detailed"`
	StationPhases []StationPhaseView `json:"stationPhases" groups:"detailed"`
}

type CandidateView struct {
	Railway   railway.RailwayID       `json:"railway" groups:"basic"`
	Direction railway.TravelDirection `json:"direction" groups:"basic"`
	Focus     *FocusStation           `json:"focus,omitempty" groups:"basic"`
}

type RailwayScoreView struct {
	Railway    railway.RailwayID   `json:"railway" groups:"detailed"`
	Proximity  float64             `json:"proximity" groups:"detailed"`
	Direction  *float64            `json:"direction,omitempty" groups:"detailed"`
	Coordinate *railway.Coordinate `json:"coordinate,omitempty" groups:"detailed"`
}

type StationPhaseView struct {
	Station   railway.StationID       `json:"station" groups:"detailed"`
	Direction railway.TravelDirection `json:"direction" groups:"detailed"`
	History   PhaseHistory            `json:"history" groups:"detailed"`
}

func (r *TrackingResult) View() ResultView {
	view := ResultView{
		Fix:           r.Fix,
		Candidates:    []CandidateView{},
		Railways:      []RailwayScoreView{},
		StationPhases: []StationPhaseView{},
	}

	for _, candidate := range r.Candidates {
		candidateView := CandidateView{Railway: candidate.RailwayID, Direction: candidate.Direction}
		if focus, ok := r.FocusStations[candidate]; ok {
			candidateView.Focus = &focus
		}
		view.Candidates = append(view.Candidates, candidateView)
	}

	for _, railwayID := range sortedRailwayIDs(r.Proximity) {
		scoreView := RailwayScoreView{Railway: railwayID, Proximity: r.Proximity[railwayID]}
		if direction, ok := r.Direction[railwayID]; ok {
			scoreView.Direction = &direction
		}
		if coordinate, ok := r.Coordinates[railwayID]; ok {
			scoreView.Coordinate = &coordinate
		}
		view.Railways = append(view.Railways, scoreView)
	}

	for key, history := range r.StationPhaseHistories {
		view.StationPhases = append(view.StationPhases, StationPhaseView{
			Station:   key.StationID,
			Direction: key.Direction,
			History:   history.clone(),
		})
	}
	slices.SortFunc(view.StationPhases, func(a, b StationPhaseView) int {
		if c := cmp.Compare(a.Station, b.Station); c != 0 {
			return c
		}
		return cmp.Compare(a.Direction, b.Direction)
	})

	return view
}
