package recorder

import (
	"context"
	"time"

	"github.com/fleetwatch/fleetwatch/pkg/transit"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Role restricts a query to arrivals, departures or both.
type Role int

const (
	RoleAny Role = iota
	RoleArrivals
	RoleDepartures
)

// Filter describes an arrival/departure query. The time window is
// mandatory; the remaining fields narrow the result set when non zero.
type Filter struct {
	Start time.Time
	End   time.Time

	VehicleID string
	TripID    string
	ServiceID string

	StopPathIndex *int

	Role Role
}

func (f Filter) query() bson.M {
	query := bson.M{
		"time": bson.M{
			"$gte": f.Start,
			"$lt":  f.End,
		},
	}

	if f.VehicleID != "" {
		query["vehicleid"] = f.VehicleID
	}
	if f.TripID != "" {
		query["tripid"] = f.TripID
	}
	if f.ServiceID != "" {
		query["serviceid"] = f.ServiceID
	}
	if f.StopPathIndex != nil {
		query["stoppathindex"] = *f.StopPathIndex
	}

	switch f.Role {
	case RoleArrivals:
		query["isarrival"] = true
	case RoleDepartures:
		query["isarrival"] = false
	}

	return query
}

var byTime = bson.D{{Key: "time", Value: 1}}

// Find returns every matching fact ordered by time. For large windows
// prefer FindBatch or Iterate, which bound memory.
func (s *Store) Find(ctx context.Context, filter Filter) ([]*transit.ArrivalDeparture, error) {
	opts := options.Find().SetSort(byTime)

	cursor, err := s.collection.Find(ctx, filter.query(), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	return decodeAll(ctx, cursor)
}

// FindBatch returns one page of matching facts ordered by time. This is
// the recommended mode for large but bounded result sets.
func (s *Store) FindBatch(ctx context.Context, filter Filter, offset int64, pageSize int64) ([]*transit.ArrivalDeparture, error) {
	opts := options.Find().
		SetSort(byTime).
		SetSkip(offset).
		SetLimit(pageSize)

	cursor, err := s.collection.Find(ctx, filter.query(), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	return decodeAll(ctx, cursor)
}

// Count returns the number of matching facts without loading them.
func (s *Store) Count(ctx context.Context, filter Filter) (int64, error) {
	return s.collection.CountDocuments(ctx, filter.query())
}

// Iterate streams matching facts ordered by time without holding the whole
// result set in memory. The caller must Close the iterator.
func (s *Store) Iterate(ctx context.Context, filter Filter) (*Iterator, error) {
	opts := options.Find().SetSort(byTime)

	cursor, err := s.collection.Find(ctx, filter.query(), opts)
	if err != nil {
		return nil, err
	}

	return &Iterator{cursor: cursor}, nil
}

type Iterator struct {
	cursor *mongo.Cursor
}

func (it *Iterator) Next(ctx context.Context) (*transit.ArrivalDeparture, bool) {
	if !it.cursor.Next(ctx) {
		return nil, false
	}

	var ad transit.ArrivalDeparture
	if err := it.cursor.Decode(&ad); err != nil {
		return nil, false
	}

	return &ad, true
}

func (it *Iterator) Err() error {
	return it.cursor.Err()
}

func (it *Iterator) Close(ctx context.Context) error {
	return it.cursor.Close(ctx)
}

func decodeAll(ctx context.Context, cursor *mongo.Cursor) ([]*transit.ArrivalDeparture, error) {
	var results []*transit.ArrivalDeparture

	for cursor.Next(ctx) {
		var ad transit.ArrivalDeparture
		if err := cursor.Decode(&ad); err != nil {
			return nil, err
		}

		results = append(results, &ad)
	}

	return results, cursor.Err()
}
