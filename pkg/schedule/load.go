package schedule

import (
	"context"
	"errors"
	"fmt"

	"github.com/fleetwatch/fleetwatch/pkg/database"
	"github.com/fleetwatch/fleetwatch/pkg/transit"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Load reads the newest configuration revision of the schedule graph from
// the blocks collection.
func Load(ctx context.Context) (*Graph, error) {
	blocksCollection := database.GetCollection("blocks")

	var latest struct {
		ConfigRev int `bson:"configrev"`
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "configrev", Value: -1}})
	err := blocksCollection.FindOne(ctx, bson.M{}, opts).Decode(&latest)
	if err != nil {
		return nil, latestRevisionError(err)
	}

	cursor, err := blocksCollection.Find(ctx, bson.M{"configrev": latest.ConfigRev})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var blocks []*transit.Block
	for cursor.Next(ctx) {
		var block transit.Block
		if err := cursor.Decode(&block); err != nil {
			log.Error().Err(err).Msg("Failed to decode block")
			continue
		}
		if err := block.Validate(); err != nil {
			log.Error().Err(err).Msg("Skipping malformed block")
			continue
		}

		blocks = append(blocks, &block)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	log.Info().
		Int("configRev", latest.ConfigRev).
		Int("blocks", len(blocks)).
		Msg("Loaded schedule graph")

	return NewGraph(latest.ConfigRev, blocks), nil
}

// latestRevisionError keeps the empty-collection case readable while
// preserving the underlying failure for everything else.
func latestRevisionError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return errors.New("no schedule configuration available")
	}

	return fmt.Errorf("finding latest schedule configuration: %w", err)
}
