package tracker

import (
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/fleetwatch/fleetwatch/pkg/redis_client"
	"github.com/rs/zerolog/log"
)

// StartCleaner periodically returns unacknowledged deliveries from dead
// consumers back to the ready queue, which is what makes delivery
// at-least-once across restarts.
func StartCleaner() {
	cleaner := rmq.NewCleaner(redis_client.QueueConnection)

	go func() {
		for range time.Tick(time.Minute) {
			returned, err := cleaner.Clean()
			if err != nil {
				log.Error().Err(err).Msg("Failed to clean realtime queue")
				continue
			}

			if returned > 0 {
				log.Info().Int64("returned", returned).Msg("Returned unacknowledged deliveries")
			}
		}
	}()
}
