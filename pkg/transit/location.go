package transit

import "math"

const earthRadiusMetres = 6371000

type Location struct {
	Type        string    `json:"-" bson:"type"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates"`
}

func NewLocation(longitude float64, latitude float64) Location {
	return Location{
		Type:        "Point",
		Coordinates: []float64{longitude, latitude},
	}
}

// HasCoordinates reports whether the location carries a usable
// longitude/latitude pair. Documents decoded from storage can arrive with a
// short or missing coordinates array, and the accessors below assume two
// elements.
func (l *Location) HasCoordinates() bool {
	return len(l.Coordinates) >= 2
}

func (l *Location) Longitude() float64 {
	return l.Coordinates[0]
}

func (l *Location) Latitude() float64 {
	return l.Coordinates[1]
}

// Distance returns the great-circle distance to the other location in metres.
func (l *Location) Distance(other *Location) float64 {
	lat1 := l.Latitude() * math.Pi / 180
	lat2 := other.Latitude() * math.Pi / 180
	deltaLat := (other.Latitude() - l.Latitude()) * math.Pi / 180
	deltaLon := (other.Longitude() - l.Longitude()) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMetres * c
}

// DistanceFromLine returns the distance in metres from this location to the
// closest point on the segment between a and b. The perpendicular foot is
// found in coordinate space and the final distance measured great-circle.
func (l *Location) DistanceFromLine(a Location, b Location) float64 {
	A := l.Coordinates[0] - a.Coordinates[0]
	B := l.Coordinates[1] - a.Coordinates[1]
	C := b.Coordinates[0] - a.Coordinates[0]
	D := b.Coordinates[1] - a.Coordinates[1]

	dot := A*C + B*D
	lenSq := C*C + D*D

	param := -1.0
	if lenSq != 0 {
		param = dot / lenSq
	}

	var closest Location
	if param < 0 {
		closest = a
	} else if param > 1 {
		closest = b
	} else {
		closest = NewLocation(a.Coordinates[0]+param*C, a.Coordinates[1]+param*D)
	}

	return l.Distance(&closest)
}
