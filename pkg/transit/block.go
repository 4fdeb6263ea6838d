package transit

import "fmt"

// Block, Trip and StopPath form the static schedule graph. The graph is
// loaded once per configuration revision and never mutated at runtime, so
// it can be shared across workers without locking.

type Block struct {
	ConfigRev int    `bson:"configrev"`
	ID        string `bson:"id"`
	ServiceID string `bson:"serviceid"`

	Trips []*Trip `bson:"trips"`
}

// Validate rejects blocks containing stop paths without a usable stop
// location. The matcher measures the distance from every report to every
// remaining stop, so one coordinate-less stop would fault the whole match.
func (b *Block) Validate() error {
	for _, trip := range b.Trips {
		for _, stopPath := range trip.StopPaths {
			if !stopPath.StopLocation.HasCoordinates() {
				return fmt.Errorf("stop %s on trip %s of block %s has no usable location", stopPath.StopID, trip.ID, b.ID)
			}
		}
	}

	return nil
}

func (b *Block) Trip(tripIndex int) *Trip {
	if tripIndex < 0 || tripIndex >= len(b.Trips) {
		return nil
	}
	return b.Trips[tripIndex]
}

type Trip struct {
	ID             string `bson:"id"`
	ShortName      string `bson:"shortname"`
	RouteID        string `bson:"routeid"`
	RouteShortName string `bson:"routeshortname"`
	DirectionID    string `bson:"directionid"`
	Headsign       string `bson:"headsign"`

	// NoSchedule marks frequency based trips, which have no fixed per stop
	// schedule times.
	NoSchedule bool `bson:"noschedule"`

	StopPaths []*StopPath `bson:"stoppaths"`
}

func (t *Trip) StopPath(stopPathIndex int) *StopPath {
	if stopPathIndex < 0 || stopPathIndex >= len(t.StopPaths) {
		return nil
	}
	return t.StopPaths[stopPathIndex]
}

// IsLastStopPath reports whether the index refers to the final stop of the
// trip. The schedule time invariant for arrivals only applies there.
func (t *Trip) IsLastStopPath(stopPathIndex int) bool {
	return stopPathIndex == len(t.StopPaths)-1
}

type StopPath struct {
	StopID      string `bson:"stopid"`
	GtfsStopSeq int    `bson:"gtfsstopseq"`

	// Length of the path leading to this stop in metres.
	Length float64 `bson:"length"`

	StopLocation Location `bson:"stoplocation"`

	ScheduledArrival   *DayTime `bson:"scheduledarrival,omitempty"`
	ScheduledDeparture *DayTime `bson:"scheduleddeparture,omitempty"`
}
