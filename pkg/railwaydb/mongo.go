package railwaydb

import (
	"cmp"
	"context"
	"errors"
	"fmt"

	"github.com/travigo/railtracker/pkg/database"
	"github.com/travigo/railtracker/pkg/geo"
	"github.com/travigo/railtracker/pkg/railway"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/exp/slices"
)

type geoJSONPoint struct {
	Type        string    `bson:"type"`
	Coordinates []float64 `bson:"coordinates"`
}

func newGeoJSONPoint(point geo.Point) geoJSONPoint {
	return geoJSONPoint{Type: "Point", Coordinates: []float64{point.Longitude, point.Latitude}}
}

type mongoStation struct {
	railway.Station `bson:",inline"`

	Location geoJSONPoint `bson:"location"`
	Distance float64      `bson:"distance,omitempty"`
}

type mongoTrackPoint struct {
	ID        railway.CoordinateID `bson:"coordinate"`
	RailwayID railway.RailwayID    `bson:"railway"`
	Order     int                  `bson:"order"`
	Latitude  float64              `bson:"latitude"`
	Longitude float64              `bson:"longitude"`
	Location  geoJSONPoint         `bson:"location"`
}

// MongoIndex is a railway.Index over the railway collections of the connected MongoDB database
type MongoIndex struct {
	railways    *mongo.Collection
	stations    *mongo.Collection
	trackPoints *mongo.Collection
}

// NewMongoIndex uses the global connection, database.Connect must have been called
func NewMongoIndex() *MongoIndex {
	return &MongoIndex{
		railways:    database.GetCollection(database.RailwaysCollection),
		stations:    database.GetCollection(database.StationsCollection),
		trackPoints: database.GetCollection(database.TrackPointsCollection),
	}
}

func (m *MongoIndex) NearestTrackPoints(ctx context.Context, point geo.Point, box geo.BoundingBox) ([]railway.TrackPoint, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$geoNear", Value: bson.D{
			{Key: "near", Value: newGeoJSONPoint(point)},
			{Key: "distanceField", Value: "distance"},
			{Key: "spherical", Value: true},
			{Key: "query", Value: bson.M{
				"latitude":  bson.M{"$gte": box.MinLatitude, "$lte": box.MaxLatitude},
				"longitude": bson.M{"$gte": box.MinLongitude, "$lte": box.MaxLongitude},
			}},
		}}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$railway"},
			{Key: "point", Value: bson.M{"$first": "$$ROOT"}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	cursor, err := m.trackPoints.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to query track points: %w", err)
	}

	var groups []struct {
		RailwayID railway.RailwayID `bson:"_id"`
		Point     mongoTrackPoint   `bson:"point"`
	}
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, err
	}

	trackPoints := make([]railway.TrackPoint, 0, len(groups))
	for _, group := range groups {
		trackPoints = append(trackPoints, railway.TrackPoint{
			RailwayID: group.RailwayID,
			Coordinate: railway.Coordinate{
				ID:        group.Point.ID,
				Latitude:  group.Point.Latitude,
				Longitude: group.Point.Longitude,
			},
		})
	}

	return trackPoints, nil
}

func (m *MongoIndex) NearestStations(ctx context.Context, point geo.Point, railwayIDs []railway.RailwayID, limit int) ([]railway.StationMatch, error) {
	matches := []railway.StationMatch{}
	if len(railwayIDs) == 0 || limit <= 0 {
		return matches, nil
	}

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$geoNear", Value: bson.D{
			{Key: "near", Value: newGeoJSONPoint(point)},
			{Key: "distanceField", Value: "distance"},
			{Key: "spherical", Value: true},
			{Key: "query", Value: bson.M{"railway": bson.M{"$in": railwayIDs}}},
		}}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$railway"},
			{Key: "stations", Value: bson.M{"$push": "$$ROOT"}},
		}}},
		bson.D{{Key: "$project", Value: bson.M{
			"stations": bson.M{"$slice": bson.A{"$stations", limit}},
		}}},
	}

	cursor, err := m.stations.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to query stations: %w", err)
	}

	var groups []struct {
		RailwayID railway.RailwayID `bson:"_id"`
		Stations  []mongoStation    `bson:"stations"`
	}
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, err
	}

	byRailway := map[railway.RailwayID][]mongoStation{}
	for _, group := range groups {
		slices.SortStableFunc(group.Stations, func(a, b mongoStation) int {
			return cmp.Compare(a.Distance, b.Distance)
		})
		byRailway[group.RailwayID] = group.Stations
	}

	for _, railwayID := range railwayIDs {
		for _, station := range byRailway[railwayID] {
			matches = append(matches, railway.StationMatch{RailwayID: railwayID, Station: station.Station})
		}
	}

	return matches, nil
}

func (m *MongoIndex) Railways(ctx context.Context) ([]railway.RailwayID, error) {
	cursor, err := m.railways.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"_id": 1}).SetSort(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}

	var documents []struct {
		ID railway.RailwayID `bson:"_id"`
	}
	if err := cursor.All(ctx, &documents); err != nil {
		return nil, err
	}

	ids := make([]railway.RailwayID, 0, len(documents))
	for _, document := range documents {
		ids = append(ids, document.ID)
	}

	return ids, nil
}

func (m *MongoIndex) RailwayByID(ctx context.Context, id railway.RailwayID) (*railway.Railway, error) {
	var line railway.Railway
	err := m.railways.FindOne(ctx, bson.M{"_id": id}).Decode(&line)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("railway %s: %w", id, railway.ErrNotFound)
	}

	return &line, err
}

func (m *MongoIndex) StationByID(ctx context.Context, id railway.StationID) (*railway.Station, error) {
	var station mongoStation
	err := m.stations.FindOne(ctx, bson.M{"_id": id}).Decode(&station)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("station %s: %w", id, railway.ErrNotFound)
	} else if err != nil {
		return nil, err
	}

	return &station.Station, nil
}

func (m *MongoIndex) StationsForRailway(ctx context.Context, id railway.RailwayID) ([]*railway.Station, error) {
	if _, err := m.RailwayByID(ctx, id); err != nil {
		return nil, err
	}

	cursor, err := m.stations.Find(ctx, bson.M{"railway": id}, options.Find().SetSort(bson.M{"order": 1}))
	if err != nil {
		return nil, err
	}

	var documents []mongoStation
	if err := cursor.All(ctx, &documents); err != nil {
		return nil, err
	}

	stations := make([]*railway.Station, 0, len(documents))
	for i := range documents {
		stations = append(stations, &documents[i].Station)
	}

	return stations, nil
}

// WriteMongo replaces the documents of every railway in the dataset
func WriteMongo(ctx context.Context, dataset *Dataset) error {
	index, err := dataset.Index()
	if err != nil {
		return err
	}
	m := NewMongoIndex()

	railwayIDs, err := index.Railways(ctx)
	if err != nil {
		return err
	}

	var railwayOperations, stationOperations, trackOperations []mongo.WriteModel

	for _, railwayID := range railwayIDs {
		line, _ := index.RailwayByID(ctx, railwayID)
		railwayOperations = append(railwayOperations, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": line.ID}).
			SetReplacement(line).
			SetUpsert(true))

		stations, _ := index.StationsForRailway(ctx, railwayID)
		for _, station := range stations {
			stationOperations = append(stationOperations, mongo.NewReplaceOneModel().
				SetFilter(bson.M{"_id": station.ID}).
				SetReplacement(mongoStation{Station: *station, Location: newGeoJSONPoint(station.Point())}).
				SetUpsert(true))
		}

		trackOperations = append(trackOperations, mongo.NewDeleteManyModel().SetFilter(bson.M{"railway": railwayID}))
		for i, coordinate := range index.tracks[railwayID] {
			trackOperations = append(trackOperations, mongo.NewInsertOneModel().SetDocument(mongoTrackPoint{
				ID:        coordinate.ID,
				RailwayID: railwayID,
				Order:     i + 1,
				Latitude:  coordinate.Latitude,
				Longitude: coordinate.Longitude,
				Location:  newGeoJSONPoint(coordinate.Point()),
			}))
		}
	}

	for _, write := range []struct {
		collection *mongo.Collection
		operations []mongo.WriteModel
	}{
		{m.railways, railwayOperations},
		{m.stations, stationOperations},
		{m.trackPoints, trackOperations},
	} {
		if len(write.operations) == 0 {
			continue
		}

		if _, err := write.collection.BulkWrite(ctx, write.operations, options.BulkWrite().SetOrdered(true)); err != nil {
			return fmt.Errorf("failed to bulk write %s: %w", write.collection.Name(), err)
		}
	}

	return nil
}
