package diversion

import (
	"fmt"
	"time"

	"github.com/fleetwatch/fleetwatch/pkg/transit"
)

// Diversion is a temporary replacement path for a trip/route. It is read
// only at runtime and owned by the Registry.
type Diversion struct {
	TripID  string `bson:"tripid"`
	RouteID string `bson:"routeid"`
	ShapeID string `bson:"shapeid"`

	Segments []Segment `bson:"segments"`

	// Validity window [StartTime, EndTime). Both nil means the diversion is
	// always in place.
	StartTime *time.Time `bson:"starttime,omitempty"`
	EndTime   *time.Time `bson:"endtime,omitempty"`
}

type Segment struct {
	Start transit.Location `bson:"start"`
	End   transit.Location `bson:"end"`
}

// Validate rejects diversions whose segment endpoints carry no usable
// coordinates, so distance matching never indexes into a short coordinates
// array.
func (d *Diversion) Validate() error {
	for i, segment := range d.Segments {
		if !segment.Start.HasCoordinates() || !segment.End.HasCoordinates() {
			return fmt.Errorf("segment %d of diversion for trip %s has no usable coordinates", i, d.TripID)
		}
	}

	return nil
}

// ActiveAt reports whether the diversion is in place at the given time.
func (d *Diversion) ActiveAt(at time.Time) bool {
	if d.StartTime == nil && d.EndTime == nil {
		return true
	}
	if d.StartTime == nil || d.EndTime == nil {
		return false
	}

	return !at.Before(*d.StartTime) && at.Before(*d.EndTime)
}

// MinDistanceToSegment returns the minimum perpendicular distance in metres
// from the location to any of the diversion's segments.
func (d *Diversion) MinDistanceToSegment(location *transit.Location) float64 {
	minDistance := -1.0

	for _, segment := range d.Segments {
		distance := location.DistanceFromLine(segment.Start, segment.End)
		if minDistance < 0 || distance < minDistance {
			minDistance = distance
		}
	}

	return minDistance
}
