package session

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sourcegraph/conc/pool"
	"github.com/travigo/railtracker/pkg/location"
	"github.com/travigo/railtracker/pkg/railway"
	"github.com/travigo/railtracker/pkg/tracker"
)

// Trip is a recorded sequence of fixes, in recording order
type Trip struct {
	SessionID string
	Fixes     []location.Fix
}

type TripResults struct {
	SessionID string
	Results   []*tracker.TrackingResult
}

// Replay runs a recorded trip through a fresh session and returns one result per fix
func Replay(ctx context.Context, index railway.Index, trip Trip, options Options) ([]*tracker.TrackingResult, error) {
	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s := Start(sessionCtx, trip.SessionID, index, options)
	for _, fix := range trip.Fixes {
		if err := s.Submit(fix); err != nil {
			return nil, fmt.Errorf("replay of %s: %w", trip.SessionID, errors.Join(ctx.Err(), err))
		}
	}
	s.processor.Finish()

	results := make([]*tracker.TrackingResult, 0, len(trip.Fixes))
	for {
		result, err := s.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, fmt.Errorf("replay of %s: %w", trip.SessionID, err)
		}

		results = append(results, result)
	}

	// A cancelled replay drains without results
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("replay of %s: %w", trip.SessionID, err)
	}

	return results, nil
}

// ReplayAll replays trips concurrently against one shared index
func ReplayAll(ctx context.Context, index railway.Index, trips []Trip, workers int, options Options) ([]TripResults, error) {
	p := pool.NewWithResults[TripResults]().WithContext(ctx).WithMaxGoroutines(workers)

	for _, trip := range trips {
		trip := trip // per-iteration copy for go < 1.22 loop semantics
		p.Go(func(ctx context.Context) (TripResults, error) {
			results, err := Replay(ctx, index, trip, options)
			if err != nil {
				return TripResults{}, err
			}

			return TripResults{SessionID: trip.SessionID, Results: results}, nil
		})
	}

	return p.Wait()
}
