package tracker

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/railtracker/pkg/geo"
	"github.com/travigo/railtracker/pkg/util"
)

// Normalization is a super-linear mapping of a measurement onto [0,1]
type Normalization struct {
	Best     float64
	Worst    float64
	Exponent float64
}

func (n Normalization) Apply(value float64) float64 {
	return geo.LinAbsNorm(value, n.Best, n.Worst, n.Exponent)
}

// Config holds the tuning constants of the railway tracker
type Config struct {
	// Half width in degrees of the box searched for nearby track
	SearchDelta float64

	// Track distance in metres to proximity score
	Proximity Normalization
	// Heading alignment (absolute dot product) to directional score
	Direction Normalization
	// Speed in m/s to the weight applied to proximity scores
	SpeedWeight Normalization

	// Below this speed (m/s) the course is too noisy to score direction
	MinimumDirectionSpeed float64
	// Running directional scores are clamped to [-DirectionScoreLimit, DirectionScoreLimit]
	DirectionScoreLimit float64
	// |running directional score| must exceed this for a direction to be resolved
	DirectionConfidence float64
	// Number of railways ranked by running proximity that may become candidates
	CandidateLimit int

	VisitingRadius    float64
	ApproachingRadius float64
	// A visit lasting longer than this is a stop, shorter is a pass-through
	DwellThreshold time.Duration
}

var DefaultConfig = Config{
	SearchDelta: 0.02,

	Proximity:   Normalization{Best: 1, Worst: 3000, Exponent: 5},
	Direction:   Normalization{Best: 1, Worst: 0, Exponent: 2},
	SpeedWeight: Normalization{Best: 20, Worst: 2, Exponent: 0.7},

	MinimumDirectionSpeed: 3.0,
	DirectionScoreLimit:   10,
	DirectionConfidence:   2.0,
	CandidateLimit:        8,

	VisitingRadius:    200,
	ApproachingRadius: 500,
	DwellThreshold:    20 * time.Second,
}

// GetConfig returns the tracker configuration from environment variables or defaults
func GetConfig() Config {
	config := DefaultConfig
	env := util.GetEnvironmentVariables()

	config.SearchDelta = util.EnvFloat(env, "RAILTRACKER_SEARCH_DELTA_DEGREES", config.SearchDelta)
	config.Proximity.Worst = util.EnvFloat(env, "RAILTRACKER_PROXIMITY_WORST_METERS", config.Proximity.Worst)
	config.MinimumDirectionSpeed = util.EnvFloat(env, "RAILTRACKER_MIN_DIRECTION_SPEED", config.MinimumDirectionSpeed)
	config.DirectionConfidence = util.EnvFloat(env, "RAILTRACKER_DIRECTION_CONFIDENCE", config.DirectionConfidence)
	config.CandidateLimit = util.EnvInt(env, "RAILTRACKER_CANDIDATE_LIMIT", config.CandidateLimit)
	if config.CandidateLimit < 1 {
		log.Warn().Int("limit", config.CandidateLimit).Msg("Ignoring candidate limit below 1")
		config.CandidateLimit = DefaultConfig.CandidateLimit
	}
	config.VisitingRadius = util.EnvFloat(env, "RAILTRACKER_VISITING_RADIUS_METERS", config.VisitingRadius)
	config.ApproachingRadius = util.EnvFloat(env, "RAILTRACKER_APPROACHING_RADIUS_METERS", config.ApproachingRadius)
	config.DwellThreshold = util.EnvDuration(env, "RAILTRACKER_DWELL_THRESHOLD", config.DwellThreshold)

	return config
}
