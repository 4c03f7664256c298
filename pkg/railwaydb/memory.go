package railwaydb

import (
	"cmp"
	"context"
	"fmt"
	"math"

	"github.com/travigo/railtracker/pkg/geo"
	"github.com/travigo/railtracker/pkg/railway"
	"golang.org/x/exp/slices"
)

// MemoryIndex is a railway.Index over reference data held in memory. It is
// immutable after construction and safe for concurrent use.
type MemoryIndex struct {
	railways          map[railway.RailwayID]*railway.Railway
	stations          map[railway.StationID]*railway.Station
	stationsByRailway map[railway.RailwayID][]*railway.Station
	tracks            map[railway.RailwayID][]railway.Coordinate
}

func NewMemoryIndex(railways []*railway.Railway, stations []*railway.Station, tracks map[railway.RailwayID][]railway.Coordinate) (*MemoryIndex, error) {
	index := &MemoryIndex{
		railways:          map[railway.RailwayID]*railway.Railway{},
		stations:          map[railway.StationID]*railway.Station{},
		stationsByRailway: map[railway.RailwayID][]*railway.Station{},
		tracks:            map[railway.RailwayID][]railway.Coordinate{},
	}

	for _, line := range railways {
		if _, exists := index.railways[line.ID]; exists {
			return nil, fmt.Errorf("duplicate railway %s", line.ID)
		}
		index.railways[line.ID] = line
	}

	for _, station := range stations {
		if _, exists := index.railways[station.RailwayID]; !exists {
			return nil, fmt.Errorf("station %s references unknown railway %s", station.ID, station.RailwayID)
		}
		if _, exists := index.stations[station.ID]; exists {
			return nil, fmt.Errorf("duplicate station %s", station.ID)
		}

		index.stations[station.ID] = station
		index.stationsByRailway[station.RailwayID] = append(index.stationsByRailway[station.RailwayID], station)
	}

	for railwayID, railwayStations := range index.stationsByRailway {
		slices.SortFunc(railwayStations, func(a, b *railway.Station) int {
			return cmp.Compare(a.Order, b.Order)
		})

		for i := 1; i < len(railwayStations); i++ {
			if railwayStations[i].Order == railwayStations[i-1].Order {
				return nil, fmt.Errorf("railway %s has two stations with order %d", railwayID, railwayStations[i].Order)
			}
		}
	}

	for railwayID, track := range tracks {
		if _, exists := index.railways[railwayID]; !exists {
			return nil, fmt.Errorf("track references unknown railway %s", railwayID)
		}
		index.tracks[railwayID] = track
	}

	return index, nil
}

func (m *MemoryIndex) NearestTrackPoints(ctx context.Context, point geo.Point, box geo.BoundingBox) ([]railway.TrackPoint, error) {
	trackPoints := []railway.TrackPoint{}

	for railwayID, track := range m.tracks {
		closestDistance := math.Inf(1)
		var closest *railway.Coordinate

		for i := range track {
			coordinate := track[i]
			if !box.Contains(coordinate.Point()) {
				continue
			}

			if distance := point.Distance(coordinate.Point()); distance < closestDistance {
				closestDistance = distance
				closest = &coordinate
			}
		}

		if closest != nil {
			trackPoints = append(trackPoints, railway.TrackPoint{RailwayID: railwayID, Coordinate: *closest})
		}
	}

	slices.SortFunc(trackPoints, func(a, b railway.TrackPoint) int {
		return cmp.Compare(a.RailwayID, b.RailwayID)
	})

	return trackPoints, ctx.Err()
}

func (m *MemoryIndex) NearestStations(ctx context.Context, point geo.Point, railwayIDs []railway.RailwayID, limit int) ([]railway.StationMatch, error) {
	matches := []railway.StationMatch{}

	for _, railwayID := range railwayIDs {
		stations := slices.Clone(m.stationsByRailway[railwayID])
		slices.SortStableFunc(stations, func(a, b *railway.Station) int {
			return cmp.Compare(point.Distance(a.Point()), point.Distance(b.Point()))
		})

		for i, station := range stations {
			if i >= limit {
				break
			}
			matches = append(matches, railway.StationMatch{RailwayID: railwayID, Station: *station})
		}
	}

	return matches, ctx.Err()
}

func (m *MemoryIndex) Railways(ctx context.Context) ([]railway.RailwayID, error) {
	ids := make([]railway.RailwayID, 0, len(m.railways))
	for id := range m.railways {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	return ids, nil
}

func (m *MemoryIndex) RailwayByID(ctx context.Context, id railway.RailwayID) (*railway.Railway, error) {
	line, ok := m.railways[id]
	if !ok {
		return nil, fmt.Errorf("railway %s: %w", id, railway.ErrNotFound)
	}

	copied := *line
	copied.Stations = slices.Clone(line.Stations)

	return &copied, nil
}

func (m *MemoryIndex) StationByID(ctx context.Context, id railway.StationID) (*railway.Station, error) {
	station, ok := m.stations[id]
	if !ok {
		return nil, fmt.Errorf("station %s: %w", id, railway.ErrNotFound)
	}

	copied := *station

	return &copied, nil
}

func (m *MemoryIndex) StationsForRailway(ctx context.Context, id railway.RailwayID) ([]*railway.Station, error) {
	if _, ok := m.railways[id]; !ok {
		return nil, fmt.Errorf("railway %s: %w", id, railway.ErrNotFound)
	}

	stations := make([]*railway.Station, 0, len(m.stationsByRailway[id]))
	for _, station := range m.stationsByRailway[id] {
		copied := *station
		stations = append(stations, &copied)
	}

	return stations, nil
}
