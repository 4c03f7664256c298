package tracker

import (
	"github.com/travigo/railtracker/pkg/location"
)

// StationLocationHistory collects the fixes that describe the rider's movement
// around one station in one direction of travel
type StationLocationHistory struct {
	Visiting    []location.Fix `json:"visiting" groups:"detailed"`
	Approaching []location.Fix `json:"approaching" groups:"detailed"`
	// The first fix seen moving away from the station, which resolves it
	FirstDeparture *location.Fix `json:"firstDeparture" groups:"detailed"`
}

func (h *StationLocationHistory) hasVisiting() bool {
	return h != nil && len(h.Visiting) > 0
}

func (h *StationLocationHistory) hasApproaching() bool {
	return h != nil && len(h.Approaching) > 0
}

func (h *StationLocationHistory) hasDeparture() bool {
	return h != nil && h.FirstDeparture != nil
}

func (h *StationLocationHistory) setDeparture(fix location.Fix) {
	if h.FirstDeparture == nil {
		h.FirstDeparture = &fix
	}
}

// acceptsFallbackDeparture reports whether a departure can be recorded without
// making the history contradictory (approached but never visited, then left)
func (h *StationLocationHistory) acceptsFallbackDeparture() bool {
	if h == nil {
		return true
	}

	return !h.hasDeparture() && !(h.hasApproaching() && !h.hasVisiting())
}

// proposedPhase derives the phase the station is in now. ok is false when the
// history is contradictory.
func (h *StationLocationHistory) proposedPhase(terminal bool, config Config) (StationPhase, bool) {
	visiting, approaching, departed := h.hasVisiting(), h.hasApproaching(), h.hasDeparture()

	switch {
	case !visiting && !approaching && departed:
		return PhaseDeparture, true
	case !visiting && approaching && !departed:
		return PhaseApproaching, true
	case visiting && !departed:
		return PhaseVisiting, true
	case visiting && departed:
		if terminal {
			return PhaseVisited, true
		}

		dwell := h.FirstDeparture.Timestamp.Sub(h.Visiting[0].Timestamp)
		if dwell > config.DwellThreshold {
			return PhaseVisited, true
		}
		return PhasePassed, true
	default:
		return "", false
	}
}

func (h *StationLocationHistory) clone() *StationLocationHistory {
	cloned := &StationLocationHistory{
		Visiting:    append([]location.Fix(nil), h.Visiting...),
		Approaching: append([]location.Fix(nil), h.Approaching...),
	}
	if h.FirstDeparture != nil {
		departure := *h.FirstDeparture
		cloned.FirstDeparture = &departure
	}

	return cloned
}
