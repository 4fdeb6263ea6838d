package database

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func createIndexes() {
	createScheduleIndexes()
	createDiversionIndexes()
	createArrivalDepartureIndexes()
}

func createScheduleIndexes() {
	blocksCollection := GetCollection("blocks")
	blocksIndex := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "id", Value: 1}, {Key: "configrev", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "serviceid", Value: 1}},
		},
	}

	opts := options.CreateIndexes()
	_, err := blocksCollection.Indexes().CreateMany(context.Background(), blocksIndex, opts)
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}
}

func createDiversionIndexes() {
	diversionsCollection := GetCollection("diversions")
	diversionsIndex := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "tripid", Value: 1}, {Key: "routeid", Value: 1}},
		},
	}

	opts := options.CreateIndexes()
	_, err := diversionsCollection.Indexes().CreateMany(context.Background(), diversionsIndex, opts)
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}
}

func createArrivalDepartureIndexes() {
	arrivalsDeparturesCollection := GetCollection("arrivals_departures")

	// The composite key index is unique so that redelivered position reports
	// cannot create duplicate facts.
	unique := true
	arrivalsDeparturesIndex := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "vehicleid", Value: 1},
				{Key: "time", Value: 1},
				{Key: "stopid", Value: 1},
				{Key: "gtfsstopseq", Value: 1},
				{Key: "isarrival", Value: 1},
				{Key: "tripid", Value: 1},
			},
			Options: &options.IndexOptions{Unique: &unique},
		},
		{
			Keys: bson.D{{Key: "time", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "routeshortname", Value: 1}, {Key: "time", Value: 1}},
		},
	}

	opts := options.CreateIndexes()
	_, err := arrivalsDeparturesCollection.Indexes().CreateMany(context.Background(), arrivalsDeparturesIndex, opts)
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}
}
