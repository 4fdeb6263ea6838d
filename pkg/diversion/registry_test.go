package diversion

import (
	"testing"
	"time"

	"github.com/fleetwatch/fleetwatch/pkg/transit"
)

func straightSegment(latitude float64) Segment {
	return Segment{
		Start: transit.NewLocation(-0.01, latitude),
		End:   transit.NewLocation(0.01, latitude),
	}
}

func TestRegistryMatches(t *testing.T) {
	registry := NewRegistry([]*Diversion{
		{TripID: "trip-1", RouteID: "route-9", ShapeID: "shape-near", Segments: []Segment{straightSegment(51)}},
		// About 555m away from the probe, outside a 60m threshold.
		{TripID: "trip-1", RouteID: "route-9", ShapeID: "shape-far", Segments: []Segment{straightSegment(51.005)}},
		{TripID: "trip-2", RouteID: "route-9", ShapeID: "shape-other-trip", Segments: []Segment{straightSegment(51)}},
	})

	report := &transit.PositionReport{
		VehicleID:  "bus-1",
		Location:   transit.NewLocation(0, 51),
		RecordedAt: time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC),
	}

	matches := registry.Matches(report, "trip-1", "route-9", "block-1", 0, 60)

	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	if matches[0].ShapeID != "shape-near" {
		t.Errorf("matched shape %s, want shape-near", matches[0].ShapeID)
	}
	if matches[0].BlockID != "block-1" || matches[0].TripIndex != 0 {
		t.Errorf("match context = %s/%d, want block-1/0", matches[0].BlockID, matches[0].TripIndex)
	}
	if matches[0].MinDistanceToSegment > 1 {
		t.Errorf("MinDistanceToSegment = %.1fm, want ~0m", matches[0].MinDistanceToSegment)
	}
	if !matches[0].Time.Equal(report.RecordedAt) {
		t.Errorf("match time = %s, want report time", matches[0].Time)
	}
}

func TestRegistryMatchesMultiple(t *testing.T) {
	registry := NewRegistry([]*Diversion{
		{TripID: "trip-1", RouteID: "route-9", ShapeID: "shape-a", Segments: []Segment{straightSegment(51)}},
		{TripID: "trip-1", RouteID: "route-9", ShapeID: "shape-b", Segments: []Segment{straightSegment(51.0002)}},
	})

	report := &transit.PositionReport{
		VehicleID:  "bus-1",
		Location:   transit.NewLocation(0, 51.0001),
		RecordedAt: time.Now(),
	}

	matches := registry.Matches(report, "trip-1", "route-9", "", 0, 60)

	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2 (a vehicle can match several diversions)", len(matches))
	}
}

func TestRegistryMatchesRespectsWindow(t *testing.T) {
	start := time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 14, 17, 0, 0, 0, time.UTC)

	registry := NewRegistry([]*Diversion{
		{
			TripID:    "trip-1",
			RouteID:   "route-9",
			Segments:  []Segment{straightSegment(51)},
			StartTime: &start,
			EndTime:   &end,
		},
	})

	report := &transit.PositionReport{
		VehicleID:  "bus-1",
		Location:   transit.NewLocation(0, 51),
		RecordedAt: end.Add(time.Minute),
	}

	if matches := registry.Matches(report, "trip-1", "route-9", "", 0, 60); len(matches) != 0 {
		t.Errorf("got %d matches outside the validity window, want 0", len(matches))
	}
}

func TestRegistryMatchesUnknownKey(t *testing.T) {
	registry := NewRegistry(nil)

	report := &transit.PositionReport{
		VehicleID:  "bus-1",
		Location:   transit.NewLocation(0, 51),
		RecordedAt: time.Now(),
	}

	if matches := registry.Matches(report, "trip-1", "route-9", "", 0, 60); matches != nil {
		t.Errorf("got %v for unknown trip/route, want nil", matches)
	}
}
