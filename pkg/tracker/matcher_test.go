package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	"github.com/fleetwatch/fleetwatch/pkg/diversion"
	"github.com/fleetwatch/fleetwatch/pkg/schedule"
	"github.com/fleetwatch/fleetwatch/pkg/transit"
)

type memoryRecorder struct {
	facts []*transit.ArrivalDeparture
}

func (m *memoryRecorder) Record(_ context.Context, ad *transit.ArrivalDeparture) error {
	m.facts = append(m.facts, ad)
	return nil
}

// memoryStore is a map backed gocache store, standing in for redis so the
// assignment cache behaviour is testable.
type memoryStore struct {
	values map[any]any
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[any]any{}}
}

func (s *memoryStore) Get(_ context.Context, key any) (any, error) {
	value, ok := s.values[key]
	if !ok {
		return nil, store.NotFoundWithCause(nil)
	}
	return value, nil
}

func (s *memoryStore) GetWithTTL(ctx context.Context, key any) (any, time.Duration, error) {
	value, err := s.Get(ctx, key)
	return value, 0, err
}

func (s *memoryStore) Set(_ context.Context, key any, value any, _ ...store.Option) error {
	s.values[key] = value
	return nil
}

func (s *memoryStore) Delete(_ context.Context, key any) error {
	delete(s.values, key)
	return nil
}

func (s *memoryStore) Invalidate(_ context.Context, _ ...store.InvalidateOption) error {
	return nil
}

func (s *memoryStore) Clear(_ context.Context) error {
	s.values = map[any]any{}
	return nil
}

func (s *memoryStore) GetType() string {
	return "memory"
}

func matcherBlock() *transit.Block {
	arrivalB, _ := transit.ParseDayTime("08:10:00")
	arrivalC, _ := transit.ParseDayTime("08:20:00")

	return &transit.Block{
		ConfigRev: 1,
		ID:        "block-1",
		ServiceID: "weekday",
		Trips: []*transit.Trip{
			{
				ID:          "trip-1",
				RouteID:     "route-9",
				DirectionID: "0",
				StopPaths: []*transit.StopPath{
					{StopID: "stop-a", GtfsStopSeq: 1, StopLocation: transit.NewLocation(0, 51)},
					{StopID: "stop-b", GtfsStopSeq: 2, StopLocation: transit.NewLocation(0.01, 51), ScheduledArrival: &arrivalB},
					{StopID: "stop-c", GtfsStopSeq: 3, StopLocation: transit.NewLocation(0.02, 51), ScheduledArrival: &arrivalC},
				},
			},
			{
				ID:          "trip-2",
				RouteID:     "route-9",
				DirectionID: "1",
				StopPaths: []*transit.StopPath{
					{StopID: "stop-d", GtfsStopSeq: 1, StopLocation: transit.NewLocation(0.03, 51)},
					{StopID: "stop-a", GtfsStopSeq: 2, StopLocation: transit.NewLocation(0, 51)},
				},
			},
		},
	}
}

func matcherConsumer(t *testing.T) (*Consumer, *memoryRecorder) {
	t.Helper()

	recorded := &memoryRecorder{}

	consumer, err := NewConsumer(
		DefaultConfig(),
		schedule.NewGraph(1, []*transit.Block{matcherBlock()}),
		diversion.NewRegistry(nil),
		recorded,
	)
	if err != nil {
		t.Fatalf("NewConsumer returned error: %v", err)
	}

	return consumer, recorded
}

func report(longitude float64, recordedAt time.Time, tripRef string) *transit.PositionReport {
	return &transit.PositionReport{
		VehicleID:  "bus-1",
		Location:   transit.NewLocation(longitude, 51),
		RecordedAt: recordedAt,
		TripRef:    tripRef,
	}
}

func TestMatchReportFirstObservationEmitsNothing(t *testing.T) {
	consumer, recorded := matcherConsumer(t)

	consumer.matchReport(report(0, time.Date(2024, 3, 14, 8, 0, 0, 0, time.UTC), "trip-1"))

	if len(recorded.facts) != 0 {
		t.Errorf("got %d facts on first observation, want 0", len(recorded.facts))
	}

	state := consumer.vehicles.Acquire("bus-1")
	defer consumer.vehicles.Release(state)

	if state.TripIndex != 0 || state.StopPathIndex != 0 {
		t.Errorf("position = trip %d path %d, want 0/0", state.TripIndex, state.StopPathIndex)
	}
}

func TestMatchReportEmitsPassedStops(t *testing.T) {
	consumer, recorded := matcherConsumer(t)
	start := time.Date(2024, 3, 14, 8, 0, 0, 0, time.UTC)

	consumer.matchReport(report(0, start, "trip-1"))
	consumer.matchReport(report(0.01, start.Add(5*time.Minute), "trip-1"))

	// Advancing one stop boundary emits the arrival at stop-a and, since it
	// is not the trip's last stop, the departure a millisecond later.
	if len(recorded.facts) != 2 {
		t.Fatalf("got %d facts, want 2", len(recorded.facts))
	}

	arrival, departure := recorded.facts[0], recorded.facts[1]
	if !arrival.IsArrival || arrival.StopID != "stop-a" {
		t.Errorf("first fact = %s, want arrival at stop-a", arrival)
	}
	if departure.IsArrival || departure.StopID != "stop-a" {
		t.Errorf("second fact = %s, want departure from stop-a", departure)
	}
	if !departure.Time.Equal(arrival.Time.Add(time.Millisecond)) {
		t.Errorf("departure at %s, want one millisecond after the arrival", departure.Time)
	}
}

func TestMatchReportSkipsStaleReport(t *testing.T) {
	consumer, recorded := matcherConsumer(t)
	start := time.Date(2024, 3, 14, 8, 0, 0, 0, time.UTC)

	consumer.matchReport(report(0, start, "trip-1"))
	consumer.matchReport(report(0.02, start.Add(-time.Minute), "trip-1"))

	if len(recorded.facts) != 0 {
		t.Errorf("stale report emitted %d facts, want 0", len(recorded.facts))
	}
}

func TestMatchReportWithoutAssignment(t *testing.T) {
	consumer, recorded := matcherConsumer(t)

	consumer.matchReport(report(0, time.Date(2024, 3, 14, 8, 0, 0, 0, time.UTC), ""))

	if len(recorded.facts) != 0 {
		t.Errorf("unassigned vehicle emitted %d facts, want 0", len(recorded.facts))
	}

	state := consumer.vehicles.Acquire("bus-1")
	defer consumer.vehicles.Release(state)

	if state.Block != nil {
		t.Error("unassigned vehicle should have no block")
	}
	if state.LastReport == nil {
		t.Error("the report should still be remembered for staleness checks")
	}
}

func TestMatchReportBlockHint(t *testing.T) {
	consumer, recorded := matcherConsumer(t)

	blockReport := report(0, time.Date(2024, 3, 14, 8, 0, 0, 0, time.UTC), "")
	blockReport.BlockRef = "block-1"

	consumer.matchReport(blockReport)

	if len(recorded.facts) != 0 {
		t.Errorf("got %d facts on first observation, want 0", len(recorded.facts))
	}

	state := consumer.vehicles.Acquire("bus-1")
	defer consumer.vehicles.Release(state)

	if state.Block == nil || state.Block.ID != "block-1" || state.TripIndex != 0 {
		t.Error("block hint should assign the first trip of the block")
	}
}

// A vehicle reaching the end of its trip and showing up at the next trip's
// first stop must close out the remaining stops of the current trip,
// including the arrival-only fact at its final stop.
func TestMatchReportAdvancesToNextTrip(t *testing.T) {
	consumer, recorded := matcherConsumer(t)
	start := time.Date(2024, 3, 14, 8, 0, 0, 0, time.UTC)

	consumer.matchReport(report(0.01, start, "trip-1"))

	// Right at trip-2's first stop; the hint-less report keeps the block
	// assignment and the matcher rolls over to the next trip.
	consumer.matchReport(report(0.03, start.Add(15*time.Minute), ""))

	var lastStopFacts []*transit.ArrivalDeparture
	for _, fact := range recorded.facts {
		if fact.StopID == "stop-c" && fact.TripID == "trip-1" {
			lastStopFacts = append(lastStopFacts, fact)
		}
	}

	if len(lastStopFacts) != 1 || !lastStopFacts[0].IsArrival {
		t.Fatalf("final stop facts = %v, want exactly one arrival", lastStopFacts)
	}
	if lastStopFacts[0].ScheduledTime == nil {
		t.Error("arrival at the trip's final stop should carry its schedule time")
	}

	state := consumer.vehicles.Acquire("bus-1")
	defer consumer.vehicles.Release(state)

	if state.TripIndex != 1 || state.StopPathIndex != 0 {
		t.Errorf("position = trip %d path %d, want rolled over to 1/0", state.TripIndex, state.StopPathIndex)
	}
}

// A hint that resolves to no known trip must not wipe out a vehicle's
// working assignment: the miss may only be cached for vehicles that were
// never placed, otherwise one bogus hint silences the vehicle's hint-less
// reports until the cache entry expires.
func TestMatchReportBadTripHintKeepsAssignment(t *testing.T) {
	consumer, recorded := matcherConsumer(t)
	consumer.assignmentCache = cache.New[string](newMemoryStore())
	start := time.Date(2024, 3, 14, 8, 0, 0, 0, time.UTC)

	consumer.matchReport(report(0, start, "trip-1"))
	consumer.matchReport(report(0, start.Add(time.Minute), "trip-99"))

	cached, err := consumer.assignmentCache.Get(context.Background(), "bus-1")
	if err != nil || cached != "trip-1" {
		t.Errorf("cached assignment = %q (%v), want trip-1 kept", cached, err)
	}

	// The next hint-less report still matches and advances the vehicle.
	consumer.matchReport(report(0.01, start.Add(5*time.Minute), ""))

	if len(recorded.facts) != 2 {
		t.Errorf("got %d facts after the bad hint, want 2 for the passed stop", len(recorded.facts))
	}
}

func TestMatchReportBadTripHintCachesMissWhenUnassigned(t *testing.T) {
	consumer, recorded := matcherConsumer(t)
	consumer.assignmentCache = cache.New[string](newMemoryStore())
	start := time.Date(2024, 3, 14, 8, 0, 0, 0, time.UTC)

	consumer.matchReport(report(0, start, "trip-99"))

	cached, err := consumer.assignmentCache.Get(context.Background(), "bus-1")
	if err != nil || cached != assignmentCacheMiss {
		t.Errorf("cached assignment = %q (%v), want the remembered miss", cached, err)
	}

	consumer.matchReport(report(0.01, start.Add(5*time.Minute), ""))

	if len(recorded.facts) != 0 {
		t.Errorf("unplaceable vehicle emitted %d facts, want 0", len(recorded.facts))
	}
}

func TestMatchReportPrediction(t *testing.T) {
	consumer, _ := matcherConsumer(t)

	// Close to stop-b, which has a 08:10:00 scheduled arrival; at 08:02 the
	// raw horizon is 8 minutes.
	consumer.matchReport(report(0.009, time.Date(2024, 3, 14, 8, 2, 0, 0, time.UTC), "trip-1"))

	state := consumer.vehicles.Acquire("bus-1")
	defer consumer.vehicles.Release(state)

	prediction := state.NextStopPrediction
	if prediction == nil {
		t.Fatal("expected a next stop prediction")
	}
	if prediction.Raw != 8*time.Minute {
		t.Errorf("raw prediction = %s, want 8m", prediction.Raw)
	}
	if prediction.Adjusted <= prediction.Raw {
		t.Errorf("adjusted = %s, want inflated beyond %s by the default linear bias", prediction.Adjusted, prediction.Raw)
	}
}
