package diversion

import (
	"context"
	"time"

	"github.com/fleetwatch/fleetwatch/pkg/database"
	"github.com/fleetwatch/fleetwatch/pkg/transit"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
)

// Key identifies the set of diversions for one trip on one route.
type Key struct {
	TripID  string
	RouteID string
}

// Match records how close a position report came to an active diversion.
type Match struct {
	MinDistanceToSegment float64
	Time                 time.Time

	BlockID   string
	TripIndex int

	ShapeID string
	TripID  string
	RouteID string
}

// Registry holds the active diversions keyed by (trip, route). It is
// populated at load time and read only afterwards, so lookups need no
// locking.
type Registry struct {
	diversions map[Key][]*Diversion
}

func NewRegistry(diversions []*Diversion) *Registry {
	registry := &Registry{
		diversions: map[Key][]*Diversion{},
	}

	for _, d := range diversions {
		key := Key{TripID: d.TripID, RouteID: d.RouteID}
		registry.diversions[key] = append(registry.diversions[key], d)
	}

	return registry
}

func (r *Registry) Diversions(key Key) []*Diversion {
	return r.diversions[key]
}

// Matches returns every diversion for the trip/route that is active at the
// report time and whose closest segment lies within maxDistance metres of
// the report. A vehicle can match several diversions at once.
func (r *Registry) Matches(
	report *transit.PositionReport,
	tripID string,
	routeID string,
	blockID string,
	tripIndex int,
	maxDistance float64,
) []Match {
	var matches []Match

	for _, d := range r.Diversions(Key{TripID: tripID, RouteID: routeID}) {
		if !d.ActiveAt(report.RecordedAt) {
			continue
		}

		minDistance := d.MinDistanceToSegment(&report.Location)
		if minDistance < 0 || minDistance >= maxDistance {
			continue
		}

		matches = append(matches, Match{
			MinDistanceToSegment: minDistance,
			Time:                 report.RecordedAt,

			BlockID:   blockID,
			TripIndex: tripIndex,

			ShapeID: d.ShapeID,
			TripID:  d.TripID,
			RouteID: d.RouteID,
		})
	}

	return matches
}

// Load reads every diversion from the diversions collection.
func Load(ctx context.Context) (*Registry, error) {
	diversionsCollection := database.GetCollection("diversions")

	cursor, err := diversionsCollection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var diversions []*Diversion
	for cursor.Next(ctx) {
		var d Diversion
		if err := cursor.Decode(&d); err != nil {
			log.Error().Err(err).Msg("Failed to decode diversion")
			continue
		}
		if err := d.Validate(); err != nil {
			log.Error().Err(err).Msg("Skipping malformed diversion")
			continue
		}

		diversions = append(diversions, &d)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	log.Info().Int("diversions", len(diversions)).Msg("Loaded diversion registry")

	return NewRegistry(diversions), nil
}
