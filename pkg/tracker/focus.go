package tracker

import (
	"time"

	"github.com/travigo/railtracker/pkg/railway"
)

// FocusPhase is how the focus station relates to the rider
type FocusPhase string

const (
	FocusUpcoming    FocusPhase = "upcoming"
	FocusApproaching FocusPhase = "approaching"
	FocusVisiting    FocusPhase = "visiting"
)

// Title is the short label shown next to the focus station
func (p FocusPhase) Title() string {
	switch p {
	case FocusUpcoming:
		return "Next"
	case FocusApproaching:
		return "Soon"
	case FocusVisiting:
		return "Now"
	default:
		return ""
	}
}

// FocusStation is the station most relevant to the rider on one railway direction
type FocusStation struct {
	StationID railway.StationID `json:"station" groups:"basic"`
	Phase     FocusPhase        `json:"phase" groups:"basic"`
	Date      time.Time         `json:"date" groups:"basic"`
}

// focusStation walks the stations in travel order and lets every later station with
// a phase override the result of the earlier ones
func focusStation(ordered []*railway.Station, direction railway.TravelDirection, phases map[railway.StationDirection]PhaseHistory) (FocusStation, bool) {
	var focus FocusStation
	found := false

	for i, station := range ordered {
		latest, ok := phases[railway.StationDirection{StationID: station.ID, Direction: direction}].Latest()
		if !ok {
			continue
		}

		var next *railway.Station
		if i+1 < len(ordered) {
			next = ordered[i+1]
		}

		switch latest.Phase {
		case PhaseApproaching:
			focus = FocusStation{StationID: station.ID, Phase: FocusApproaching, Date: latest.Date}
		case PhaseVisiting:
			focus = FocusStation{StationID: station.ID, Phase: FocusVisiting, Date: latest.Date}
		case PhaseDeparture, PhaseVisited, PhasePassed:
			if next != nil {
				focus = FocusStation{StationID: next.ID, Phase: FocusUpcoming, Date: latest.Date}
			} else {
				// Left the terminal station, treated as still being there
				focus = FocusStation{StationID: station.ID, Phase: FocusVisiting, Date: latest.Date}
			}
		default:
			continue
		}
		found = true
	}

	return focus, found
}
