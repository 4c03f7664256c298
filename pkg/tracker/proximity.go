package tracker

import (
	"context"

	"github.com/travigo/railtracker/pkg/geo"
	"github.com/travigo/railtracker/pkg/location"
	"github.com/travigo/railtracker/pkg/railway"
)

// ProximityScores are the instantaneous per-railway scores of one fix.
// Railways outside the search box are absent, which is not the same as a zero score.
type ProximityScores struct {
	Scores      map[railway.RailwayID]float64
	Coordinates map[railway.RailwayID]railway.Coordinate
}

func emptyProximityScores() ProximityScores {
	return ProximityScores{
		Scores:      map[railway.RailwayID]float64{},
		Coordinates: map[railway.RailwayID]railway.Coordinate{},
	}
}

// RailwayIDs returns the railways present in the scores in a stable order
func (p ProximityScores) RailwayIDs() []railway.RailwayID {
	return sortedRailwayIDs(p.Scores)
}

type ProximityScorer struct {
	index  railway.Index
	config Config
}

func NewProximityScorer(index railway.Index, config Config) *ProximityScorer {
	return &ProximityScorer{index: index, config: config}
}

func (p *ProximityScorer) Score(ctx context.Context, fix location.Fix) (ProximityScores, error) {
	point := fix.Point()
	box := geo.BoxAround(point, p.config.SearchDelta)

	trackPoints, err := p.index.NearestTrackPoints(ctx, point, box)
	if err != nil {
		return emptyProximityScores(), err
	}

	scores := emptyProximityScores()
	for _, trackPoint := range trackPoints {
		distance := point.Distance(trackPoint.Coordinate.Point())

		scores.Scores[trackPoint.RailwayID] = p.DistanceScore(distance)
		scores.Coordinates[trackPoint.RailwayID] = trackPoint.Coordinate
	}

	return scores, nil
}

// DistanceScore maps a distance in metres from the track onto [0,1]
func (p *ProximityScorer) DistanceScore(distance float64) float64 {
	return p.config.Proximity.Apply(distance)
}
