package transit

import (
	"errors"
	"time"
)

// PositionReport is a single AVL report for a vehicle. Reports are immutable
// once received; the tracker consumes each report exactly once.
type PositionReport struct {
	VehicleID string `json:"vehicle_id"`

	Location Location `json:"location"`
	Bearing  *float64 `json:"bearing,omitempty"`
	Speed    *float64 `json:"speed,omitempty"`

	RecordedAt time.Time `json:"recorded_at"`

	// Assignment hints supplied by the AVL source. Either may be empty, in
	// which case the tracker falls back to its cached assignment.
	TripRef  string `json:"trip_ref,omitempty"`
	BlockRef string `json:"block_ref,omitempty"`

	DataSource string `json:"data_source,omitempty"`
}

func (r *PositionReport) Validate() error {
	if r.VehicleID == "" {
		return errors.New("position report missing vehicle identifier")
	}
	if r.RecordedAt.IsZero() {
		return errors.New("position report missing timestamp")
	}
	if len(r.Location.Coordinates) != 2 {
		return errors.New("position report missing location coordinates")
	}

	return nil
}
