package tracker

import (
	"errors"
	"time"
)

var (
	// ErrDuplicatePhase is returned when the proposed phase is already the current one
	ErrDuplicatePhase = errors.New("station is already in this phase")
	// ErrIllegalTransition is returned when the state machine does not allow the move
	ErrIllegalTransition = errors.New("illegal station phase transition")
	// ErrOutOfOrder is returned when a phase would be dated before the current one
	ErrOutOfOrder = errors.New("station phase dated before current phase")
)

// StationPhase is the transit state of a station relative to the rider
type StationPhase string

const (
	PhaseDeparture   StationPhase = "departure"
	PhaseApproaching StationPhase = "approaching"
	PhaseVisiting    StationPhase = "visiting"
	PhaseVisited     StationPhase = "visited"
	PhasePassed      StationPhase = "passed"
)

// IsTerminal reports whether no further phase may follow
func (p StationPhase) IsTerminal() bool {
	return p == PhaseDeparture || p == PhaseVisited || p == PhasePassed
}

var phaseTransitions = map[StationPhase][]StationPhase{
	PhaseApproaching: {PhaseVisiting, PhaseVisited, PhasePassed, PhaseDeparture},
	PhaseVisiting:    {PhaseVisited, PhasePassed, PhaseDeparture},
}

// CanTransition reports whether a station in phase from may move to phase to.
// A station with no phase yet is represented by the empty phase.
func CanTransition(from StationPhase, to StationPhase) bool {
	if from == "" {
		return true
	}

	for _, allowed := range phaseTransitions[from] {
		if allowed == to {
			return true
		}
	}

	return false
}

type PhaseItem struct {
	Phase StationPhase `json:"phase" groups:"basic"`
	Date  time.Time    `json:"date" groups:"basic"`
}

// PhaseHistory is the append-only, time ordered list of phases of one station direction
type PhaseHistory []PhaseItem

func (h PhaseHistory) Latest() (PhaseItem, bool) {
	if len(h) == 0 {
		return PhaseItem{}, false
	}

	return h[len(h)-1], true
}

// Append records phase at date if it is a legal, non-duplicate transition
func (h *PhaseHistory) Append(phase StationPhase, date time.Time) error {
	var current StationPhase

	if latest, ok := h.Latest(); ok {
		current = latest.Phase

		if current == phase {
			return ErrDuplicatePhase
		}
		if date.Before(latest.Date) {
			return ErrOutOfOrder
		}
	}

	if !CanTransition(current, phase) {
		return ErrIllegalTransition
	}

	*h = append(*h, PhaseItem{Phase: phase, Date: date})

	return nil
}

func (h PhaseHistory) clone() PhaseHistory {
	cloned := make(PhaseHistory, len(h))
	copy(cloned, h)

	return cloned
}
