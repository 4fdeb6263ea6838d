package recorder

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetwatch/fleetwatch/pkg/prediction/datafilter"
	"github.com/fleetwatch/fleetwatch/pkg/transit"
)

// DwellTime is one observed arrival/departure pair at a stop, used as
// training input for dwell time models.
type DwellTime struct {
	Arrival   *transit.ArrivalDeparture
	Departure *transit.ArrivalDeparture

	Dwell time.Duration
}

// DwellTimes pairs arrivals with their matching departures within the
// filter window and keeps only the pairs the dwell time filter admits.
// Facts are streamed so large windows stay within bounded memory.
func (s *Store) DwellTimes(ctx context.Context, filter Filter, admit datafilter.Filter) ([]DwellTime, error) {
	filter.Role = RoleAny

	iterator, err := s.Iterate(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer iterator.Close(ctx)

	dwellTimes := pairDwellTimes(func() (*transit.ArrivalDeparture, bool) {
		return iterator.Next(ctx)
	}, admit)

	return dwellTimes, iterator.Err()
}

func pairDwellTimes(next func() (*transit.ArrivalDeparture, bool), admit datafilter.Filter) []DwellTime {
	var dwellTimes []DwellTime
	pendingArrivals := map[string]*transit.ArrivalDeparture{}

	for {
		ad, ok := next()
		if !ok {
			break
		}

		pairKey := fmt.Sprintf("%s|%s|%d|%s", ad.VehicleID, ad.StopID, ad.GtfsStopSeq, ad.TripID)

		if ad.IsArrival {
			pendingArrivals[pairKey] = ad
			continue
		}

		arrival := pendingArrivals[pairKey]
		if arrival == nil {
			continue
		}
		delete(pendingArrivals, pairKey)

		if !admit.Admit(arrival, ad) {
			continue
		}

		dwellTimes = append(dwellTimes, DwellTime{
			Arrival:   arrival,
			Departure: ad,

			Dwell: ad.Time.Sub(arrival.Time),
		})
	}

	return dwellTimes
}
