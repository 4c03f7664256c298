package tracker

import (
	"cmp"

	"github.com/rs/zerolog/log"
	"github.com/travigo/railtracker/pkg/geo"
	"github.com/travigo/railtracker/pkg/location"
	"github.com/travigo/railtracker/pkg/railway"
	"golang.org/x/exp/slices"
)

// RunningScores is the cross-fix state of one tracking session
type RunningScores struct {
	// Speed weighted proximity, only ever grows within a session
	Proximity map[railway.RailwayID]float64
	// Accumulated directional score clamped to the configured limit
	Direction map[railway.RailwayID]float64
	// Direction of travel for railways whose directional score is confident
	Resolved map[railway.RailwayID]railway.TravelDirection
}

func newRunningScores() RunningScores {
	return RunningScores{
		Proximity: map[railway.RailwayID]float64{},
		Direction: map[railway.RailwayID]float64{},
		Resolved:  map[railway.RailwayID]railway.TravelDirection{},
	}
}

func (r RunningScores) clone() RunningScores {
	cloned := newRunningScores()
	for id, score := range r.Proximity {
		cloned.Proximity[id] = score
	}
	for id, score := range r.Direction {
		cloned.Direction[id] = score
	}
	for id, direction := range r.Resolved {
		cloned.Resolved[id] = direction
	}

	return cloned
}

type ScoreAccumulator struct {
	config Config
	scores RunningScores
}

func NewScoreAccumulator(config Config) *ScoreAccumulator {
	return &ScoreAccumulator{config: config, scores: newRunningScores()}
}

// Accumulate folds one fix's instantaneous scores into the running scores and
// returns the railway directions that are candidates for this fix, best first
func (a *ScoreAccumulator) Accumulate(fix location.Fix, proximity map[railway.RailwayID]float64, direction map[railway.RailwayID]float64) []railway.RailwayDirection {
	// A fix without speed weighs (almost) nothing
	speedWeight := a.config.SpeedWeight.Apply(fix.Speed.Or(0))

	for railwayID, score := range proximity {
		a.scores.Proximity[railwayID] += score * speedWeight
	}

	for _, railwayID := range sortedRailwayIDs(direction) {
		limit := a.config.DirectionScoreLimit
		running := geo.Clamp(a.scores.Direction[railwayID]+direction[railwayID], -limit, limit)
		a.scores.Direction[railwayID] = running

		previous, wasResolved := a.scores.Resolved[railwayID]

		if running > a.config.DirectionConfidence || running < -a.config.DirectionConfidence {
			resolved := railway.Ascending
			if running < 0 {
				resolved = railway.Descending
			}
			a.scores.Resolved[railwayID] = resolved

			// TODO: decide whether station history recorded under the previous direction should be dropped on a reversal
			if wasResolved && previous != resolved {
				log.Debug().
					Str("railway", string(railwayID)).
					Str("from", string(previous)).
					Str("to", string(resolved)).
					Msg("Railway direction reversed, keeping station history of previous direction")
			}
		} else {
			delete(a.scores.Resolved, railwayID)
		}
	}

	return a.Candidates()
}

// Candidates ranks railways by running proximity, keeps the configured number and
// drops those without a resolved direction
func (a *ScoreAccumulator) Candidates() []railway.RailwayDirection {
	ranked := make([]railway.RailwayID, 0, len(a.scores.Proximity))
	for railwayID := range a.scores.Proximity {
		ranked = append(ranked, railwayID)
	}

	slices.SortStableFunc(ranked, func(x, y railway.RailwayID) int {
		if c := cmp.Compare(a.scores.Proximity[y], a.scores.Proximity[x]); c != 0 {
			return c
		}
		return cmp.Compare(x, y)
	})

	if limit := max(a.config.CandidateLimit, 0); len(ranked) > limit {
		ranked = ranked[:limit]
	}

	candidates := []railway.RailwayDirection{}
	for _, railwayID := range ranked {
		if direction, ok := a.scores.Resolved[railwayID]; ok {
			candidates = append(candidates, railway.RailwayDirection{RailwayID: railwayID, Direction: direction})
		}
	}

	return candidates
}

// Scores returns a copy of the running scores
func (a *ScoreAccumulator) Scores() RunningScores {
	return a.scores.clone()
}

func (a *ScoreAccumulator) Reset() {
	a.scores = newRunningScores()
}

func sortedRailwayIDs[V any](m map[railway.RailwayID]V) []railway.RailwayID {
	ids := make([]railway.RailwayID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	return ids
}
