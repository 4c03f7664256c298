package railway

import (
	"context"
	"errors"

	"github.com/travigo/railtracker/pkg/geo"
)

var ErrNotFound = errors.New("railway reference record not found")

// TrackPoint is the track coordinate of a railway nearest to a query point
type TrackPoint struct {
	RailwayID  RailwayID
	Coordinate Coordinate
}

// StationMatch is one of the stations of a railway nearest to a query point
type StationMatch struct {
	RailwayID RailwayID
	Station   Station
}

// Index is the read-only spatial view over the railway reference dataset.
// Implementations must be safe for concurrent use.
type Index interface {
	// NearestTrackPoints returns, for every railway with track geometry inside box,
	// its track coordinate nearest to point
	NearestTrackPoints(ctx context.Context, point geo.Point, box geo.BoundingBox) ([]TrackPoint, error)
	// NearestStations returns up to limit stations per railway, nearest first
	NearestStations(ctx context.Context, point geo.Point, railwayIDs []RailwayID, limit int) ([]StationMatch, error)

	// Railways lists every railway ID in ascending order
	Railways(ctx context.Context) ([]RailwayID, error)
	RailwayByID(ctx context.Context, id RailwayID) (*Railway, error)
	StationByID(ctx context.Context, id StationID) (*Station, error)
	// StationsForRailway returns the stations of a line ordered by their order value
	StationsForRailway(ctx context.Context, id RailwayID) ([]*Station, error)
}
