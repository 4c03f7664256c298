package replay

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/liip/sheriff"
	"github.com/travigo/railtracker/pkg/fixsource"
	"github.com/travigo/railtracker/pkg/session"
	"golang.org/x/exp/slices"
)

// Sources names where recorded trips are read from. Every source that is set contributes trips.
type Sources struct {
	SessionDB string
	Sessions  []string
	CSV       []string
	GTFSRT    []string
}

func LoadTrips(ctx context.Context, sources Sources) ([]session.Trip, error) {
	var trips []session.Trip

	if sources.SessionDB != "" {
		sessionDB, err := fixsource.OpenSQLiteSessions(sources.SessionDB)
		if err != nil {
			return nil, err
		}
		defer sessionDB.Close()

		sessionIDs := sources.Sessions
		if len(sessionIDs) == 0 {
			infos, err := sessionDB.Sessions(ctx)
			if err != nil {
				return nil, err
			}
			for _, info := range infos {
				sessionIDs = append(sessionIDs, info.ID)
			}
		}

		for _, sessionID := range sessionIDs {
			trip, err := sessionDB.Trip(ctx, sessionID)
			if err != nil {
				return nil, err
			}
			trips = append(trips, trip)
		}
	}

	for _, path := range sources.CSV {
		fixes, err := readFile(path, fixsource.ReadCSV)
		if err != nil {
			return nil, err
		}
		trips = append(trips, session.Trip{SessionID: tripName(path), Fixes: fixes})
	}

	for _, path := range sources.GTFSRT {
		vehicleTrips, err := readFile(path, fixsource.ReadGTFSRT)
		if err != nil {
			return nil, err
		}
		trips = append(trips, vehicleTrips...)
	}

	if len(trips) == 0 {
		return nil, fmt.Errorf("no trips to replay")
	}

	return trips, nil
}

func readFile[T any](path string, read func(io.Reader) (T, error)) (T, error) {
	file, err := os.Open(path)
	if err != nil {
		var zero T
		return zero, err
	}
	defer file.Close()

	return read(file)
}

func tripName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

type outputLine struct {
	Session string `json:"session"`
	Result  any    `json:"result"`
}

// WriteResults writes one JSON line per result, trips in session order
func WriteResults(writer io.Writer, all []session.TripResults, detail bool) error {
	slices.SortStableFunc(all, func(a, b session.TripResults) int {
		return strings.Compare(a.SessionID, b.SessionID)
	})

	groups := []string{"basic"}
	if detail {
		groups = append(groups, "detailed")
	}

	encoder := jsonLineEncoder(writer)
	for _, tripResults := range all {
		for _, result := range tripResults.Results {
			reduced, err := sheriff.Marshal(&sheriff.Options{Groups: groups}, result.View())
			if err != nil {
				return err
			}

			if err := encoder.Encode(outputLine{Session: tripResults.SessionID, Result: reduced}); err != nil {
				return err
			}
		}
	}

	return nil
}
