package transit

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ArrivalDeparture is an immutable fact recording that a vehicle arrived at
// or departed from a stop. Identity is the composite ArrivalDepartureKey;
// the gtfs stop sequence is part of it because a trip can serve the same
// stop twice.
type ArrivalDeparture struct {
	VehicleID   string    `bson:"vehicleid" json:"vehicle_id"`
	Time        time.Time `bson:"time" json:"time"`
	StopID      string    `bson:"stopid" json:"stop_id"`
	GtfsStopSeq int       `bson:"gtfsstopseq" json:"gtfs_stop_seq"`
	IsArrival   bool      `bson:"isarrival" json:"is_arrival"`
	TripID      string    `bson:"tripid" json:"trip_id"`

	ConfigRev int       `bson:"configrev" json:"config_rev"`
	AvlTime   time.Time `bson:"avltime" json:"avl_time"`

	// Set only when the GTFS data defines a schedule time for this exact
	// stop and role. Arrivals only get one at the final stop of the trip,
	// departures only at non final stops.
	ScheduledTime *time.Time `bson:"scheduledtime,omitempty" json:"scheduled_time,omitempty"`

	// Denormalised for query performance.
	BlockID        string `bson:"blockid" json:"block_id"`
	RouteID        string `bson:"routeid" json:"route_id"`
	RouteShortName string `bson:"routeshortname" json:"route_short_name"`
	ServiceID      string `bson:"serviceid" json:"service_id"`
	DirectionID    string `bson:"directionid" json:"direction_id"`

	TripIndex     int `bson:"tripindex" json:"trip_index"`
	StopPathIndex int `bson:"stoppathindex" json:"stop_path_index"`

	// Position of the stop within the route direction's canonical ordering.
	// Not the same as StopPathIndex because a direction can be served by
	// several trip patterns.
	StopOrder *int `bson:"stoporder,omitempty" json:"stop_order,omitempty"`

	StopPathLength float64 `bson:"stoppathlength" json:"stop_path_length"`

	// Start time of the frequency based run, if any.
	FreqStartTime *time.Time `bson:"freqstarttime,omitempty" json:"freq_start_time,omitempty"`
}

// NewArrivalDeparture materialises a fact from the block context of the
// vehicle. The scheduled time is resolved against the calendar day of the
// event so that a schedule value like 25:30:00 lands on the following day.
func NewArrivalDeparture(
	block *Block,
	tripIndex int,
	stopPathIndex int,
	isArrival bool,
	vehicleID string,
	eventTime time.Time,
	avlTime time.Time,
	stopOrder *int,
	freqStartTime *time.Time,
) (*ArrivalDeparture, error) {
	if vehicleID == "" {
		return nil, errors.New("arrival/departure requires a vehicle identifier")
	}
	if block == nil {
		return nil, errors.New("arrival/departure requires a block")
	}

	trip := block.Trip(tripIndex)
	if trip == nil {
		return nil, fmt.Errorf("block %s has no trip at index %d", block.ID, tripIndex)
	}
	stopPath := trip.StopPath(stopPathIndex)
	if stopPath == nil {
		return nil, fmt.Errorf("trip %s has no stop path at index %d", trip.ID, stopPathIndex)
	}

	ad := &ArrivalDeparture{
		VehicleID:   vehicleID,
		Time:        eventTime,
		StopID:      stopPath.StopID,
		GtfsStopSeq: stopPath.GtfsStopSeq,
		IsArrival:   isArrival,
		TripID:      trip.ID,

		ConfigRev: block.ConfigRev,
		AvlTime:   avlTime,

		BlockID:        block.ID,
		RouteID:        trip.RouteID,
		RouteShortName: trip.RouteShortName,
		ServiceID:      block.ServiceID,
		DirectionID:    trip.DirectionID,

		TripIndex:     tripIndex,
		StopPathIndex: stopPathIndex,

		StopOrder: stopOrder,

		StopPathLength: stopPath.Length,

		FreqStartTime: freqStartTime,
	}

	ad.ScheduledTime = resolveScheduledTime(trip, stopPathIndex, isArrival, eventTime)

	return ad, nil
}

// resolveScheduledTime implements the schedule time invariant. Frequency
// based trips never get one; otherwise an arrival gets the scheduled
// arrival only at the trip's final stop and a departure gets the scheduled
// departure only at non final stops.
func resolveScheduledTime(trip *Trip, stopPathIndex int, isArrival bool, eventTime time.Time) *time.Time {
	if trip.NoSchedule {
		return nil
	}

	stopPath := trip.StopPath(stopPathIndex)
	lastStop := trip.IsLastStopPath(stopPathIndex)

	if isArrival && lastStop && stopPath.ScheduledArrival != nil {
		resolved := stopPath.ScheduledArrival.EpochTime(eventTime)
		return &resolved
	}
	if !isArrival && !lastStop && stopPath.ScheduledDeparture != nil {
		resolved := stopPath.ScheduledDeparture.EpochTime(eventTime)
		return &resolved
	}

	return nil
}

func (ad *ArrivalDeparture) IsDeparture() bool {
	return !ad.IsArrival
}

// ScheduleAdherence returns the signed difference between the scheduled and
// the observed time, or nil when the fact carries no schedule time.
func (ad *ArrivalDeparture) ScheduleAdherence() *TemporalDifference {
	if ad.ScheduledTime == nil {
		return nil
	}

	difference := NewTemporalDifference(*ad.ScheduledTime, ad.Time)
	return &difference
}

func (ad *ArrivalDeparture) Key() ArrivalDepartureKey {
	return ArrivalDepartureKey{
		VehicleID:   ad.VehicleID,
		Time:        ad.Time,
		StopID:      ad.StopID,
		GtfsStopSeq: ad.GtfsStopSeq,
		IsArrival:   ad.IsArrival,
		TripID:      ad.TripID,
	}
}

func (ad *ArrivalDeparture) String() string {
	role := "Departure"
	if ad.IsArrival {
		role = "Arrival"
	}

	var extras strings.Builder
	if ad.ScheduledTime != nil {
		fmt.Fprintf(&extras, ", schedTime=%s", ad.ScheduledTime.Format(time.RFC3339))
		fmt.Fprintf(&extras, ", schedAdh=%s", ad.ScheduleAdherence())
	}

	return fmt.Sprintf(
		"%s [vehicle=%s, time=%s, stop=%s, gtfsStopSeq=%d, trip=%s, tripIdx=%d, stopIdx=%d, block=%s, route=%s%s]",
		role, ad.VehicleID, ad.Time.Format(time.RFC3339), ad.StopID, ad.GtfsStopSeq,
		ad.TripID, ad.TripIndex, ad.StopPathIndex, ad.BlockID, ad.RouteID, extras.String(),
	)
}

// ArrivalDepartureKey is the composite natural key of an ArrivalDeparture.
// It is a value type with a total ordering so it can serve both as storage
// identity and for in-memory deduplication.
type ArrivalDepartureKey struct {
	VehicleID   string
	Time        time.Time
	StopID      string
	GtfsStopSeq int
	IsArrival   bool
	TripID      string
}

func (k ArrivalDepartureKey) Equal(other ArrivalDepartureKey) bool {
	return k.Compare(other) == 0
}

// Compare defines a total order: by time first so that sorted facts read
// chronologically, then by the remaining key fields.
func (k ArrivalDepartureKey) Compare(other ArrivalDepartureKey) int {
	if c := k.Time.Compare(other.Time); c != 0 {
		return c
	}
	if c := strings.Compare(k.VehicleID, other.VehicleID); c != 0 {
		return c
	}
	if c := strings.Compare(k.StopID, other.StopID); c != 0 {
		return c
	}
	if k.GtfsStopSeq != other.GtfsStopSeq {
		if k.GtfsStopSeq < other.GtfsStopSeq {
			return -1
		}
		return 1
	}
	if k.IsArrival != other.IsArrival {
		// Arrivals sort before departures at the same instant.
		if k.IsArrival {
			return -1
		}
		return 1
	}
	return strings.Compare(k.TripID, other.TripID)
}
