package railwaydb

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/railtracker/pkg/geo"
	"github.com/travigo/railtracker/pkg/railway"
)

func createTestSQLite(t *testing.T) *SQLiteIndex {
	t.Helper()

	dataset, err := LoadDataset("testdata/dataset.yaml")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "railway.sqlite")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	require.NoError(t, WriteSQLite(context.Background(), db, dataset))
	require.NoError(t, db.Close())

	index, err := OpenSQLiteIndex(path)
	require.NoError(t, err)
	t.Cleanup(func() { index.Close() })

	return index
}

func TestSQLiteIndexMatchesMemoryIndex(t *testing.T) {
	sqliteIndex := createTestSQLite(t)
	memoryIndex := loadTestIndex(t)
	ctx := context.Background()

	points := []geo.Point{
		{Latitude: 35.6860, Longitude: 139.7640},
		{Latitude: 35.6845, Longitude: 139.7650},
		{Latitude: 35.6760, Longitude: 139.7610},
		{Latitude: 35.6953, Longitude: 139.7677},
	}

	for _, point := range points {
		box := geo.BoxAround(point, 0.02)

		expected, err := memoryIndex.NearestTrackPoints(ctx, point, box)
		require.NoError(t, err)
		actual, err := sqliteIndex.NearestTrackPoints(ctx, point, box)
		require.NoError(t, err)

		require.Len(t, actual, len(expected))
		for i := range expected {
			assert.Equal(t, expected[i].RailwayID, actual[i].RailwayID)
			assert.Equal(t, expected[i].Coordinate.Point(), actual[i].Coordinate.Point())
		}

		railways := []railway.RailwayID{marunouchi, chiyoda}
		expectedStations, err := memoryIndex.NearestStations(ctx, point, railways, 2)
		require.NoError(t, err)
		actualStations, err := sqliteIndex.NearestStations(ctx, point, railways, 2)
		require.NoError(t, err)
		assert.Equal(t, expectedStations, actualStations)
	}
}

func TestSQLiteIndexBoxFilter(t *testing.T) {
	index := createTestSQLite(t)
	north := geo.Point{Latitude: 35.6953, Longitude: 139.7677}

	trackPoints, err := index.NearestTrackPoints(context.Background(), north, geo.BoxAround(north, 0.005))
	require.NoError(t, err)
	require.Len(t, trackPoints, 1)
	assert.Equal(t, marunouchi, trackPoints[0].RailwayID)
	assert.NotZero(t, trackPoints[0].Coordinate.ID)
}

func TestSQLiteIndexNearestInsideOffsetBox(t *testing.T) {
	sqliteIndex := createTestSQLite(t)
	memoryIndex := loadTestIndex(t)
	ctx := context.Background()

	// The closest Marunouchi vertex to point lies outside the box, two others inside it
	point := geo.Point{Latitude: 35.6953, Longitude: 139.7677}
	box := geo.BoundingBox{MinLatitude: 35.682, MaxLatitude: 35.687, MinLongitude: 139.763, MaxLongitude: 139.767}

	trackPoints, err := sqliteIndex.NearestTrackPoints(ctx, point, box)
	require.NoError(t, err)
	require.Len(t, trackPoints, 1)
	assert.Equal(t, marunouchi, trackPoints[0].RailwayID)
	assert.Equal(t, geo.Point{Latitude: 35.686102, Longitude: 139.764224}, trackPoints[0].Coordinate.Point())

	expected, err := memoryIndex.NearestTrackPoints(ctx, point, box)
	require.NoError(t, err)
	require.Len(t, expected, 1)
	assert.Equal(t, expected[0].Coordinate.Point(), trackPoints[0].Coordinate.Point())
}

func TestSQLiteIndexLookups(t *testing.T) {
	index := createTestSQLite(t)
	ctx := context.Background()

	railways, err := index.Railways(ctx)
	require.NoError(t, err)
	assert.Equal(t, []railway.RailwayID{chiyoda, marunouchi}, railways)

	line, err := index.RailwayByID(ctx, marunouchi)
	require.NoError(t, err)
	assert.Equal(t, railway.Title{EN: "Marunouchi Line", JA: "丸ノ内線"}, line.Title)
	assert.Equal(t, []railway.StationID{
		"TokyoMetro.Marunouchi.Tokyo",
		"TokyoMetro.Marunouchi.Otemachi",
		"TokyoMetro.Marunouchi.Awajicho",
	}, line.Stations)
	assert.Equal(t, "#F62E36", line.Color)

	station, err := index.StationByID(ctx, "TokyoMetro.Marunouchi.Awajicho")
	require.NoError(t, err)
	assert.Equal(t, 3, station.Order)
	assert.Equal(t, "淡路町", station.Title.JA)

	stations, err := index.StationsForRailway(ctx, chiyoda)
	require.NoError(t, err)
	require.Len(t, stations, 3)
	assert.Equal(t, railway.StationID("TokyoMetro.Chiyoda.Hibiya"), stations[0].ID)

	_, err = index.RailwayByID(ctx, "TokyoMetro.Ginza")
	assert.ErrorIs(t, err, railway.ErrNotFound)
	_, err = index.StationByID(ctx, "TokyoMetro.Ginza.Shibuya")
	assert.ErrorIs(t, err, railway.ErrNotFound)
	_, err = index.StationsForRailway(ctx, "TokyoMetro.Ginza")
	assert.ErrorIs(t, err, railway.ErrNotFound)
}
