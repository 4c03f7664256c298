package database

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	RailwaysCollection    = "railways"
	StationsCollection    = "stations"
	TrackPointsCollection = "track_points"
)

func createIndexes() {
	createRailwayIndexes()
}

func createRailwayIndexes() {
	stationsCollection := GetCollection(StationsCollection)
	_, err := stationsCollection.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "location", Value: "2dsphere"}},
		},
		{
			Keys: bson.D{{Key: "railway", Value: 1}, {Key: "order", Value: 1}},
		},
	}, options.CreateIndexes())
	if err != nil {
		log.Error().Err(err).Str("collection", StationsCollection).Msg("Creating Index")
	}

	trackPointsCollection := GetCollection(TrackPointsCollection)
	_, err = trackPointsCollection.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "location", Value: "2dsphere"}},
		},
		{
			Keys: bson.D{{Key: "latitude", Value: 1}, {Key: "longitude", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "railway", Value: 1}, {Key: "order", Value: 1}},
		},
	}, options.CreateIndexes())
	if err != nil {
		log.Error().Err(err).Str("collection", TrackPointsCollection).Msg("Creating Index")
	}
}
