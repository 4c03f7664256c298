package tracker

import (
	"context"
	"math"

	"github.com/travigo/railtracker/pkg/location"
	"github.com/travigo/railtracker/pkg/railway"
)

// DirectionScorer scores how well a fix's heading matches ascending travel along each railway.
// Positive scores favour ascending, negative descending.
type DirectionScorer struct {
	index  railway.Index
	config Config
}

func NewDirectionScorer(index railway.Index, config Config) *DirectionScorer {
	return &DirectionScorer{index: index, config: config}
}

func (d *DirectionScorer) Score(ctx context.Context, fix location.Fix, railwayIDs []railway.RailwayID) (map[railway.RailwayID]float64, error) {
	scores := map[railway.RailwayID]float64{}

	heading, ok := fix.Heading()
	if !ok {
		return scores, nil
	}
	if speed, ok := fix.Speed.Get(); !ok || speed <= d.config.MinimumDirectionSpeed {
		return scores, nil
	}
	if len(railwayIDs) == 0 {
		return scores, nil
	}

	matches, err := d.index.NearestStations(ctx, fix.Point(), railwayIDs, 2)
	if err != nil {
		return scores, err
	}

	nearest := map[railway.RailwayID][]railway.Station{}
	for _, match := range matches {
		nearest[match.RailwayID] = append(nearest[match.RailwayID], match.Station)
	}

	for railwayID, stations := range nearest {
		if len(stations) != 2 {
			continue
		}

		earlier, later := stations[0], stations[1]
		if earlier.Order > later.Order {
			earlier, later = later, earlier
		}
		// Stations that are not neighbours do not describe a single track segment
		if later.Order-earlier.Order != 1 {
			continue
		}

		segment, ok := earlier.Point().VectorTo(later.Point()).Unit()
		if !ok {
			continue
		}

		dot := heading.Dot(segment)
		scores[railwayID] = sign(dot) * d.config.Direction.Apply(math.Abs(dot))
	}

	return scores, nil
}

func sign(value float64) float64 {
	switch {
	case value > 0:
		return 1
	case value < 0:
		return -1
	default:
		return 0
	}
}
