package feeder

import (
	"encoding/json"
	"os"
	"time"

	"github.com/fleetwatch/fleetwatch/pkg/redis_client"
	"github.com/fleetwatch/fleetwatch/pkg/transit"
	"github.com/rs/zerolog/log"
)

// Replay publishes position reports from a JSON file onto the tracker
// queue, pacing them by the given interval. Useful for development and for
// re-running archived AVL data through the pipeline.
func Replay(queueName string, path string, interval time.Duration) error {
	reportsJson, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var reports []*transit.PositionReport
	if err := json.Unmarshal(reportsJson, &reports); err != nil {
		return err
	}

	queue, err := redis_client.QueueConnection.OpenQueue(queueName)
	if err != nil {
		return err
	}

	published := 0
	for _, report := range reports {
		if err := report.Validate(); err != nil {
			log.Error().Err(err).Msg("Skipping invalid position report")
			continue
		}

		reportJson, _ := json.Marshal(report)
		if err := queue.PublishBytes(reportJson); err != nil {
			log.Error().Err(err).Msg("Failed to publish position report")
			continue
		}

		published += 1

		if interval > 0 {
			time.Sleep(interval)
		}
	}

	log.Info().Int("published", published).Str("queue", queueName).Msg("Replay complete")

	return nil
}
