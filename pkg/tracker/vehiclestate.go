package tracker

import (
	"sync"
	"time"

	"github.com/fleetwatch/fleetwatch/pkg/transit"
)

// VehicleState is the tracker's view of one vehicle: its block assignment,
// progress along the block and the last report seen. It is only ever
// mutated while its registry lock is held, so matching for a single vehicle
// is serialised while distinct vehicles match in parallel.
type VehicleState struct {
	VehicleID string

	Block         *transit.Block
	TripIndex     int
	StopPathIndex int

	LastReport *transit.PositionReport

	NextStopPrediction *StopPrediction

	mutex sync.Mutex
}

// StopPrediction is the latest bias adjusted arrival prediction for the
// vehicle's next stop.
type StopPrediction struct {
	StopID string

	Raw        time.Duration
	Adjusted   time.Duration
	Percentage float64

	GeneratedAt time.Time
}

func (s *VehicleState) Trip() *transit.Trip {
	if s.Block == nil {
		return nil
	}
	return s.Block.Trip(s.TripIndex)
}

// VehicleRegistry hands out per-vehicle states. Acquire returns the state
// with its lock held; the caller must Release it.
type VehicleRegistry struct {
	mutex    sync.Mutex
	vehicles map[string]*VehicleState
}

func NewVehicleRegistry() *VehicleRegistry {
	return &VehicleRegistry{
		vehicles: map[string]*VehicleState{},
	}
}

func (r *VehicleRegistry) Acquire(vehicleID string) *VehicleState {
	r.mutex.Lock()
	state := r.vehicles[vehicleID]
	if state == nil {
		state = &VehicleState{
			VehicleID: vehicleID,

			TripIndex:     -1,
			StopPathIndex: -1,
		}
		r.vehicles[vehicleID] = state
	}
	r.mutex.Unlock()

	state.mutex.Lock()
	return state
}

func (r *VehicleRegistry) Release(state *VehicleState) {
	state.mutex.Unlock()
}
