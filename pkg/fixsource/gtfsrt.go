package fixsource

import (
	"cmp"
	"fmt"
	"io"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/travigo/railtracker/pkg/location"
	"github.com/travigo/railtracker/pkg/session"
	"golang.org/x/exp/slices"
	"google.golang.org/protobuf/proto"
)

// ReadGTFSRT turns the vehicle positions of a serialized GTFS-RT feed into one
// trip per vehicle. Trips are ordered by vehicle id and their fixes by time.
func ReadGTFSRT(reader io.Reader) ([]session.Trip, error) {
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	feed := gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("parse GTFS-RT feed: %w", err)
	}

	feedTimestamp := time.Unix(int64(feed.GetHeader().GetTimestamp()), 0).UTC()
	byVehicle := map[string][]location.Fix{}
	skipped := 0

	for _, entity := range feed.GetEntity() {
		vehiclePosition := entity.GetVehicle()
		if vehiclePosition == nil || vehiclePosition.GetPosition() == nil {
			skipped++
			continue
		}

		vehicleID := vehiclePosition.GetVehicle().GetId()
		if vehicleID == "" {
			vehicleID = entity.GetId()
		}

		timestamp := feedTimestamp
		if vehiclePosition.Timestamp != nil {
			timestamp = time.Unix(int64(vehiclePosition.GetTimestamp()), 0).UTC()
		}

		position := vehiclePosition.GetPosition()
		fix := location.Fix{
			ID:        uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("gtfs-rt:%s:%d", vehicleID, timestamp.Unix()))),
			Latitude:  float64(position.GetLatitude()),
			Longitude: float64(position.GetLongitude()),
			Timestamp: timestamp,
		}
		if position.Speed != nil {
			fix.Speed = location.FromSensor(float64(position.GetSpeed()))
		}
		if position.Bearing != nil {
			fix.Course = location.FromSensor(float64(position.GetBearing()))
		}

		byVehicle[vehicleID] = append(byVehicle[vehicleID], fix)
	}

	trips := make([]session.Trip, 0, len(byVehicle))
	for vehicleID, fixes := range byVehicle {
		slices.SortStableFunc(fixes, func(a, b location.Fix) int {
			return a.Timestamp.Compare(b.Timestamp)
		})
		trips = append(trips, session.Trip{SessionID: vehicleID, Fixes: fixes})
	}
	slices.SortFunc(trips, func(a, b session.Trip) int {
		return cmp.Compare(a.SessionID, b.SessionID)
	})

	log.Debug().Int("vehicles", len(trips)).Int("skipped", skipped).Int("entities", len(feed.GetEntity())).Msg("Read GTFS-RT vehicle positions")

	return trips, nil
}
