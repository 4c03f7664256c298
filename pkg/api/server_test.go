package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/railtracker/pkg/location"
	"github.com/travigo/railtracker/pkg/metrics"
	"github.com/travigo/railtracker/pkg/railway"
	"github.com/travigo/railtracker/pkg/railwaydb"
	"github.com/travigo/railtracker/pkg/sink"
	"github.com/travigo/railtracker/pkg/tracker"
)

var testStart = time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)

func testApp(t *testing.T) (*fiber.App, *sink.LatestStore) {
	t.Helper()

	dataset, err := railwaydb.LoadDataset("../railwaydb/testdata/dataset.yaml")
	require.NoError(t, err)
	index, err := dataset.Index()
	require.NoError(t, err)

	store := sink.NewLatestStore()
	candidate := railway.RailwayDirection{RailwayID: "TokyoMetro.Marunouchi", Direction: railway.Ascending}
	result := &tracker.TrackingResult{
		Fix: location.Fix{
			Latitude:  35.6861,
			Longitude: 139.7642,
			Timestamp: testStart,
			Speed:     location.Some(8),
			Course:    location.Some(10),
		},
		Candidates: []railway.RailwayDirection{candidate},
		Proximity:  map[railway.RailwayID]float64{"TokyoMetro.Marunouchi": 0.9},
		Direction:  map[railway.RailwayID]float64{"TokyoMetro.Marunouchi": 4},
		FocusStations: map[railway.RailwayDirection]tracker.FocusStation{
			candidate: {StationID: "TokyoMetro.Marunouchi.Otemachi", Phase: tracker.FocusVisiting, Date: testStart},
		},
		StationPhaseHistories: map[railway.StationDirection]tracker.PhaseHistory{
			{StationID: "TokyoMetro.Marunouchi.Otemachi", Direction: railway.Ascending}: {{Phase: tracker.PhaseVisiting, Date: testStart}},
		},
	}
	require.NoError(t, store.Publish(context.Background(), "commute", result))

	return NewApp(Dependencies{Latest: store, Index: index, Metrics: metrics.NewCollector()}), store
}

func getJSON(t *testing.T, app *fiber.App, target string, expectedStatus int) map[string]any {
	t.Helper()

	response, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	require.NoError(t, err)
	defer response.Body.Close()
	require.Equal(t, expectedStatus, response.StatusCode)

	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	return decoded
}

func TestVersion(t *testing.T) {
	app, _ := testApp(t)

	version := getJSON(t, app, "/railtracker/version", http.StatusOK)
	assert.Equal(t, "railtracker", version["service"])
}

func TestSessionResult(t *testing.T) {
	app, _ := testApp(t)

	basic := getJSON(t, app, "/railtracker/sessions/commute", http.StatusOK)
	assert.Equal(t, "commute", basic["session"])

	result := basic["result"].(map[string]any)
	assert.NotContains(t, result, "railways")
	assert.NotContains(t, result, "stationPhases")
	assert.NotContains(t, result["fix"].(map[string]any), "speed")

	candidates := result["candidates"].([]any)
	require.Len(t, candidates, 1)
	focus := candidates[0].(map[string]any)["focus"].(map[string]any)
	assert.Equal(t, "TokyoMetro.Marunouchi.Otemachi", focus["station"])
	assert.Equal(t, "visiting", focus["phase"])

	detailed := getJSON(t, app, "/railtracker/sessions/commute?detail=true", http.StatusOK)
	result = detailed["result"].(map[string]any)
	assert.Len(t, result["railways"], 1)
	assert.Len(t, result["stationPhases"], 1)
	assert.Equal(t, 8.0, result["fix"].(map[string]any)["speed"])

	getJSON(t, app, "/railtracker/sessions/unknown", http.StatusNotFound)
}

func TestListSessions(t *testing.T) {
	app, store := testApp(t)
	store.Store("idle", tracker.ResultView{Fix: location.Fix{Timestamp: testStart.Add(-time.Hour)}}, time.Now())

	response, err := app.Test(httptest.NewRequest(http.MethodGet, "/railtracker/sessions", nil))
	require.NoError(t, err)
	defer response.Body.Close()

	var sessions []map[string]any
	require.NoError(t, json.NewDecoder(response.Body).Decode(&sessions))
	require.Len(t, sessions, 2)

	assert.Equal(t, "commute", sessions[0]["id"])
	assert.Equal(t, "TokyoMetro.Marunouchi", sessions[0]["focus"].(map[string]any)["railway"])
	assert.Equal(t, "idle", sessions[1]["id"])
	assert.NotContains(t, sessions[1], "focus")
}

func TestRailways(t *testing.T) {
	app, _ := testApp(t)

	response, err := app.Test(httptest.NewRequest(http.MethodGet, "/railtracker/railways", nil))
	require.NoError(t, err)
	defer response.Body.Close()

	var railways []map[string]any
	require.NoError(t, json.NewDecoder(response.Body).Decode(&railways))
	require.Len(t, railways, 2)
	assert.Equal(t, "TokyoMetro.Chiyoda", railways[0]["id"])

	detail := getJSON(t, app, "/railtracker/railways/TokyoMetro.Marunouchi", http.StatusOK)
	assert.Equal(t, "#F62E36", detail["color"])
	assert.Equal(t, "TokyoMetro.Ikebukuro", detail["ascending"])
	stations := detail["stations"].([]any)
	require.Len(t, stations, 3)
	assert.Equal(t, "TokyoMetro.Marunouchi.Tokyo", stations[0].(map[string]any)["id"])

	getJSON(t, app, "/railtracker/railways/TokyoMetro.Ginza", http.StatusNotFound)
}

func TestHealthAndMetrics(t *testing.T) {
	app, _ := testApp(t)

	health := getJSON(t, app, "/health", http.StatusOK)
	assert.Equal(t, "ok", health["status"])

	unhealthy := NewApp(Dependencies{
		Latest: sink.NewLatestStore(),
		Health: func(ctx context.Context) error { return errors.New("redis unavailable") },
	})
	failed := getJSON(t, unhealthy, "/health", http.StatusInternalServerError)
	assert.Equal(t, "redis unavailable", failed["error"])

	response, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	defer response.Body.Close()
	assert.Equal(t, http.StatusOK, response.StatusCode)

	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "railtracker_")
}
