package recorder

import (
	"context"

	"github.com/fleetwatch/fleetwatch/pkg/database"
	"github.com/fleetwatch/fleetwatch/pkg/transit"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
)

// Store persists arrival/departure facts and answers historic queries.
// Facts are append only; the unique composite key index in MongoDB makes
// redelivered position reports harmless.
type Store struct {
	collection *mongo.Collection
}

func NewStore() *Store {
	return &Store{
		collection: database.GetCollection("arrivals_departures"),
	}
}

// Record appends a fact. Inserting a fact whose composite key already
// exists is a no-op, which is what de-duplicates at-least-once redelivery.
func (s *Store) Record(ctx context.Context, ad *transit.ArrivalDeparture) error {
	_, err := s.collection.InsertOne(ctx, ad)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			log.Debug().
				Str("vehicle", ad.VehicleID).
				Str("stop", ad.StopID).
				Msg("Duplicate arrival/departure fact skipped")
			return nil
		}

		return err
	}

	return nil
}
