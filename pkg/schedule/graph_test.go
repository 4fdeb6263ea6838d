package schedule

import (
	"testing"

	"github.com/fleetwatch/fleetwatch/pkg/transit"
)

func testBlocks() []*transit.Block {
	return []*transit.Block{
		{
			ConfigRev: 3,
			ID:        "block-1",
			ServiceID: "weekday",
			Trips: []*transit.Trip{
				{
					ID:          "trip-1",
					RouteID:     "route-9",
					DirectionID: "0",
					StopPaths: []*transit.StopPath{
						{StopID: "stop-a", GtfsStopSeq: 1},
						{StopID: "stop-b", GtfsStopSeq: 2},
						{StopID: "stop-c", GtfsStopSeq: 3},
					},
				},
				{
					// Short turn pattern on the same direction; must not win
					// the canonical ordering over the longer pattern.
					ID:          "trip-2",
					RouteID:     "route-9",
					DirectionID: "0",
					StopPaths: []*transit.StopPath{
						{StopID: "stop-a", GtfsStopSeq: 1},
						{StopID: "stop-b", GtfsStopSeq: 2},
					},
				},
			},
		},
		{
			ConfigRev: 3,
			ID:        "block-2",
			ServiceID: "weekday",
			Trips: []*transit.Trip{
				{
					ID:          "trip-3",
					RouteID:     "route-9",
					DirectionID: "1",
					StopPaths: []*transit.StopPath{
						{StopID: "stop-c", GtfsStopSeq: 1},
						{StopID: "stop-a", GtfsStopSeq: 2},
					},
				},
			},
		},
	}
}

func TestGraphBlockLookup(t *testing.T) {
	graph := NewGraph(3, testBlocks())

	if graph.Block("block-1") == nil {
		t.Error("block-1 should resolve")
	}
	if graph.Block("block-9") != nil {
		t.Error("unknown block should resolve to nil")
	}
}

func TestGraphTripAssignment(t *testing.T) {
	graph := NewGraph(3, testBlocks())

	assignment, ok := graph.TripAssignment("trip-2")
	if !ok {
		t.Fatal("trip-2 should resolve")
	}
	if assignment.Block.ID != "block-1" || assignment.TripIndex != 1 {
		t.Errorf("assignment = %s/%d, want block-1/1", assignment.Block.ID, assignment.TripIndex)
	}

	if _, ok := graph.TripAssignment("trip-99"); ok {
		t.Error("unknown trip should not resolve")
	}
}

func TestGraphStopOrder(t *testing.T) {
	graph := NewGraph(3, testBlocks())

	// Direction 0's canonical ordering comes from trip-1, its longest pattern.
	order := graph.StopOrder("route-9", "0", "stop-c")
	if order == nil || *order != 2 {
		t.Errorf("StopOrder(stop-c) = %v, want 2", order)
	}

	// The same stop has a different position in the opposite direction.
	order = graph.StopOrder("route-9", "1", "stop-c")
	if order == nil || *order != 0 {
		t.Errorf("StopOrder(stop-c, direction 1) = %v, want 0", order)
	}

	if graph.StopOrder("route-9", "0", "stop-z") != nil {
		t.Error("unknown stop should have no order")
	}
}
