package tracker

import "time"

// Observer receives tracker events, typically to record metrics
type Observer interface {
	FixProcessed(duration time.Duration)
	QueryFailed(stage string)
	InvariantViolated(kind string)
	PhaseTransition(phase StationPhase)
}

type nopObserver struct{}

func (nopObserver) FixProcessed(time.Duration) {}
func (nopObserver) QueryFailed(string) {}
func (nopObserver) InvariantViolated(string) {}
func (nopObserver) PhaseTransition(StationPhase) {}
