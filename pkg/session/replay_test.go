package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/railtracker/pkg/railway"
)

func TestReplay(t *testing.T) {
	trip := Trip{SessionID: "trip", Fixes: northbound(10)}

	results, err := Replay(context.Background(), testIndex(t), trip, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, results, 10)

	for i, result := range results {
		assert.Equal(t, trip.Fixes[i].ID, result.Fix.ID)
	}

	assert.Equal(t, []railway.RailwayDirection{{RailwayID: testLine, Direction: railway.Ascending}}, results[9].Candidates)
}

func TestReplayAll(t *testing.T) {
	index := testIndex(t)
	trips := []Trip{
		{SessionID: "one", Fixes: northbound(3)},
		{SessionID: "two", Fixes: northbound(7)},
		{SessionID: "three", Fixes: nil},
	}

	all, err := ReplayAll(context.Background(), index, trips, 2, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, all, 3)

	counts := map[string]int{}
	for _, tripResults := range all {
		counts[tripResults.SessionID] = len(tripResults.Results)
	}
	assert.Equal(t, map[string]int{"one": 3, "two": 7, "three": 0}, counts)
}

func TestReplayCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Replay(ctx, testIndex(t), Trip{SessionID: "trip", Fixes: northbound(5)}, DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}
