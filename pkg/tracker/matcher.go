package tracker

import (
	"context"
	"time"

	"github.com/fleetwatch/fleetwatch/pkg/transit"
	"github.com/rs/zerolog/log"
)

const recordTimeout = 10 * time.Second
const assignmentCacheMiss = "N/A"

// matchReport runs the full match for one position report: resolve the
// vehicle's assignment, check active diversions and advance the vehicle
// along its trip, emitting arrival/departure facts for every stop boundary
// it passed. The registry lock serialises reports for the same vehicle.
func (c *Consumer) matchReport(report *transit.PositionReport) {
	state := c.vehicles.Acquire(report.VehicleID)
	defer c.vehicles.Release(state)

	// Duplicate or out-of-order delivery; trip progression must stay
	// monotonic per vehicle.
	if state.LastReport != nil && !report.RecordedAt.After(state.LastReport.RecordedAt) {
		log.Debug().Str("vehicle", report.VehicleID).Msg("Skipping stale position report")
		return
	}

	if !c.resolveAssignment(state, report) {
		state.LastReport = report
		return
	}

	trip := state.Trip()

	diversionMatches := c.diversions.Matches(
		report, trip.ID, trip.RouteID, state.Block.ID, state.TripIndex,
		c.config.MaxDistanceFromSegment,
	)
	for _, match := range diversionMatches {
		log.Info().
			Str("vehicle", report.VehicleID).
			Str("trip", match.TripID).
			Str("shape", match.ShapeID).
			Float64("distance", match.MinDistanceToSegment).
			Msg("Vehicle matched diversion")
	}

	c.advancePosition(state, report)

	state.LastReport = report
	c.lastReportUnix.Store(report.RecordedAt.Unix())
}

// resolveAssignment works out which block and trip the vehicle is running.
// A trip hint on the report wins; otherwise the cached assignment from an
// earlier report is reused. Unresolvable assignments are remembered in the
// cache so the registry is not hammered for vehicles we cannot place.
func (c *Consumer) resolveAssignment(state *VehicleState, report *transit.PositionReport) bool {
	tripRef := report.TripRef

	if tripRef == "" && report.BlockRef != "" {
		block := c.graph.Block(report.BlockRef)
		if block == nil {
			c.indexMatchEvent(report, "", "", false, "NONREF_BLOCK")
			return false
		}

		if state.Block == nil || state.Block.ID != block.ID {
			state.Block = block
			state.TripIndex = 0
			state.StopPathIndex = -1
		}

		return true
	}

	if tripRef == "" {
		if c.assignmentCache != nil {
			cached, _ := c.assignmentCache.Get(context.Background(), report.VehicleID)
			if cached == assignmentCacheMiss {
				return false
			}
			tripRef = cached
		}

		if tripRef == "" {
			if state.Block != nil {
				// Keep the existing assignment for hint-less reports.
				return true
			}

			c.indexMatchEvent(report, "", "", false, "NO_ASSIGNMENT")
			return false
		}
	}

	if current := state.Trip(); current != nil && current.ID == tripRef {
		return true
	}

	assignment, ok := c.graph.TripAssignment(tripRef)
	if !ok {
		// Only remember the miss for vehicles with no assignment at all.
		// A vehicle already placed on a block keeps its cached assignment,
		// otherwise one bogus hint would block its hint-less reports until
		// the cache entry expires.
		if c.assignmentCache != nil && state.Block == nil {
			c.assignmentCache.Set(context.Background(), report.VehicleID, assignmentCacheMiss)
		}

		c.indexMatchEvent(report, tripRef, "", false, "NONREF_TRIP")
		return false
	}

	state.Block = assignment.Block
	state.TripIndex = assignment.TripIndex
	state.StopPathIndex = -1

	if c.assignmentCache != nil {
		c.assignmentCache.Set(context.Background(), report.VehicleID, tripRef)
	}

	c.indexMatchEvent(report, tripRef, assignment.Block.Trip(assignment.TripIndex).RouteID, true, "")

	return true
}

// advancePosition finds the stop path the vehicle is now on and emits
// arrival/departure facts for every stop it passed since the previous
// report. Stop path k leads to stop k, so being on path k means stop k-1
// has been departed.
func (c *Consumer) advancePosition(state *VehicleState, report *transit.PositionReport) {
	trip := state.Trip()
	if trip == nil || len(trip.StopPaths) == 0 {
		return
	}

	bestTripIndex := state.TripIndex
	bestStopPathIndex := -1
	bestDistance := -1.0

	searchFrom := state.StopPathIndex
	if searchFrom < 0 {
		searchFrom = 0
	}

	for i := searchFrom; i < len(trip.StopPaths); i++ {
		distance := report.Location.Distance(&trip.StopPaths[i].StopLocation)
		if bestDistance < 0 || distance < bestDistance {
			bestDistance = distance
			bestStopPathIndex = i
		}
	}

	// Block progression: the first stop of the following trip can be the
	// nearest once the current trip is done.
	if nextTrip := state.Block.Trip(state.TripIndex + 1); nextTrip != nil && len(nextTrip.StopPaths) > 0 {
		distance := report.Location.Distance(&nextTrip.StopPaths[0].StopLocation)
		if bestDistance < 0 || distance < bestDistance {
			bestDistance = distance
			bestTripIndex = state.TripIndex + 1
			bestStopPathIndex = 0
		}
	}

	if bestStopPathIndex < 0 {
		return
	}

	if state.StopPathIndex < 0 {
		// First observation for this assignment: no stops passed yet.
		state.TripIndex = bestTripIndex
		state.StopPathIndex = bestStopPathIndex
		c.predictNextStop(state, report)
		return
	}

	if bestTripIndex > state.TripIndex {
		// Close out the remainder of the current trip before advancing.
		c.emitPassedStops(state, report, state.StopPathIndex, len(trip.StopPaths)-1)
		state.TripIndex = bestTripIndex
		state.StopPathIndex = 0
	} else if bestStopPathIndex > state.StopPathIndex {
		c.emitPassedStops(state, report, state.StopPathIndex, bestStopPathIndex-1)
		state.StopPathIndex = bestStopPathIndex
	}

	c.predictNextStop(state, report)
}

// emitPassedStops records an arrival (and a departure when the stop is not
// the trip's last) for each stop in [from, to] of the vehicle's active
// trip. The departure is placed a millisecond after the arrival so sorted
// history never shows a departure before its arrival.
func (c *Consumer) emitPassedStops(state *VehicleState, report *transit.PositionReport, from int, to int) {
	trip := state.Trip()

	for stopPathIndex := from; stopPathIndex <= to; stopPathIndex++ {
		if stopPathIndex < 0 {
			continue
		}

		c.recordFact(state, report, stopPathIndex, true, report.RecordedAt)

		if !trip.IsLastStopPath(stopPathIndex) {
			c.recordFact(state, report, stopPathIndex, false, report.RecordedAt.Add(time.Millisecond))
		}
	}
}

func (c *Consumer) recordFact(state *VehicleState, report *transit.PositionReport, stopPathIndex int, isArrival bool, eventTime time.Time) {
	trip := state.Trip()
	stopPath := trip.StopPath(stopPathIndex)

	stopOrder := c.graph.StopOrder(trip.RouteID, trip.DirectionID, stopPath.StopID)

	ad, err := transit.NewArrivalDeparture(
		state.Block, state.TripIndex, stopPathIndex, isArrival,
		state.VehicleID, eventTime, report.RecordedAt, stopOrder, nil,
	)
	if err != nil {
		// Invariant violation on a single fact; surface it and move on.
		log.Error().Err(err).Str("vehicle", state.VehicleID).Msg("Failed to build arrival/departure fact")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	if err := c.store.Record(ctx, ad); err != nil {
		log.Error().Err(err).Str("vehicle", state.VehicleID).Msg("Failed to record arrival/departure fact")
		return
	}

	log.Debug().Stringer("fact", ad).Msg("Recorded arrival/departure")
}

// predictNextStop produces a bias adjusted arrival prediction for the stop
// the vehicle is heading to, when the trip carries schedule data.
func (c *Consumer) predictNextStop(state *VehicleState, report *transit.PositionReport) {
	trip := state.Trip()
	if trip == nil || trip.NoSchedule {
		return
	}

	stopPath := trip.StopPath(state.StopPathIndex)
	if stopPath == nil {
		return
	}

	scheduled := stopPath.ScheduledArrival
	if scheduled == nil {
		scheduled = stopPath.ScheduledDeparture
	}
	if scheduled == nil {
		return
	}

	raw := scheduled.EpochTime(report.RecordedAt).Sub(report.RecordedAt)
	if raw <= 0 {
		return
	}

	adjustment := c.adjuster.Adjust(raw)

	state.NextStopPrediction = &StopPrediction{
		StopID: stopPath.StopID,

		Raw:        raw,
		Adjusted:   adjustment.Prediction,
		Percentage: adjustment.Percentage,

		GeneratedAt: report.RecordedAt,
	}

	log.Debug().
		Str("vehicle", state.VehicleID).
		Str("stop", stopPath.StopID).
		Dur("raw", raw).
		Dur("adjusted", adjustment.Prediction).
		Float64("percentage", adjustment.Percentage).
		Msg("Next stop prediction")
}
