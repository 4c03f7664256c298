package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/railtracker/pkg/location"
)

func TestCanTransition(t *testing.T) {
	for _, phase := range []StationPhase{PhaseDeparture, PhaseApproaching, PhaseVisiting, PhaseVisited, PhasePassed} {
		assert.True(t, CanTransition("", phase), phase)
	}

	assert.True(t, CanTransition(PhaseApproaching, PhaseVisiting))
	assert.True(t, CanTransition(PhaseApproaching, PhasePassed))
	assert.True(t, CanTransition(PhaseVisiting, PhaseVisited))
	assert.False(t, CanTransition(PhaseVisiting, PhaseApproaching))

	for _, terminal := range []StationPhase{PhaseDeparture, PhaseVisited, PhasePassed} {
		assert.True(t, terminal.IsTerminal())
		for _, phase := range []StationPhase{PhaseDeparture, PhaseApproaching, PhaseVisiting, PhaseVisited, PhasePassed} {
			assert.False(t, CanTransition(terminal, phase), "%s -> %s", terminal, phase)
		}
	}
}

func TestPhaseHistoryAppend(t *testing.T) {
	var history PhaseHistory

	_, ok := history.Latest()
	assert.False(t, ok)

	require.NoError(t, history.Append(PhaseApproaching, testStart))
	assert.ErrorIs(t, history.Append(PhaseApproaching, testStart.Add(time.Second)), ErrDuplicatePhase)
	assert.ErrorIs(t, history.Append(PhaseVisiting, testStart.Add(-time.Second)), ErrOutOfOrder)
	require.NoError(t, history.Append(PhaseVisiting, testStart.Add(10*time.Second)))
	require.NoError(t, history.Append(PhaseVisited, testStart.Add(40*time.Second)))
	assert.ErrorIs(t, history.Append(PhaseApproaching, testStart.Add(50*time.Second)), ErrIllegalTransition)

	assert.Equal(t, PhaseHistory{
		{Phase: PhaseApproaching, Date: testStart},
		{Phase: PhaseVisiting, Date: testStart.Add(10 * time.Second)},
		{Phase: PhaseVisited, Date: testStart.Add(40 * time.Second)},
	}, history)

	cloned := history.clone()
	cloned[0].Phase = PhasePassed
	assert.Equal(t, PhaseApproaching, history[0].Phase)
}

func TestStationLocationHistoryProposedPhase(t *testing.T) {
	visit := onLine(35.62, 0, 5, 0)
	shortDeparture := onLine(35.623, 15, 15, 0)
	longDeparture := onLine(35.623, 60, 15, 0)

	tests := []struct {
		name     string
		history  *StationLocationHistory
		terminal bool
		expected StationPhase
		ok       bool
	}{
		{name: "empty", history: &StationLocationHistory{}, ok: false},
		{name: "departure only", history: &StationLocationHistory{FirstDeparture: &longDeparture}, expected: PhaseDeparture, ok: true},
		{name: "approaching", history: &StationLocationHistory{Approaching: []location.Fix{visit}}, expected: PhaseApproaching, ok: true},
		{name: "approached then left", history: &StationLocationHistory{Approaching: []location.Fix{visit}, FirstDeparture: &longDeparture}, ok: false},
		{name: "visiting", history: &StationLocationHistory{Visiting: []location.Fix{visit}}, expected: PhaseVisiting, ok: true},
		{name: "stopped", history: &StationLocationHistory{Visiting: []location.Fix{visit}, FirstDeparture: &longDeparture}, expected: PhaseVisited, ok: true},
		{name: "passed through", history: &StationLocationHistory{Visiting: []location.Fix{visit}, FirstDeparture: &shortDeparture}, expected: PhasePassed, ok: true},
		{name: "terminal", history: &StationLocationHistory{Visiting: []location.Fix{visit}, FirstDeparture: &shortDeparture}, terminal: true, expected: PhaseVisited, ok: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			phase, ok := test.history.proposedPhase(test.terminal, DefaultConfig)
			assert.Equal(t, test.ok, ok)
			assert.Equal(t, test.expected, phase)
		})
	}
}

func TestStationLocationHistoryDepartureSetOnce(t *testing.T) {
	history := &StationLocationHistory{}
	first := onLine(35.623, 10, 15, 0)
	second := onLine(35.625, 20, 15, 0)

	history.setDeparture(first)
	history.setDeparture(second)

	require.NotNil(t, history.FirstDeparture)
	assert.Equal(t, first.ID, history.FirstDeparture.ID)
	assert.False(t, history.acceptsFallbackDeparture())

	var missing *StationLocationHistory
	assert.True(t, missing.acceptsFallbackDeparture())
	assert.False(t, missing.hasDeparture())
}
