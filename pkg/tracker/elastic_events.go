package tracker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fleetwatch/fleetwatch/pkg/elastic_client"
	"github.com/fleetwatch/fleetwatch/pkg/transit"
)

type MatchElasticEvent struct {
	Timestamp time.Time

	Success    bool
	FailReason string `json:",omitempty"`

	VehicleID string
	TripID    string
	RouteID   string

	DataSource string
}

// indexMatchEvent records the outcome of an assignment resolution in
// Elasticsearch for operational reporting. A no-op when Elasticsearch is
// not configured.
func (c *Consumer) indexMatchEvent(report *transit.PositionReport, tripID string, routeID string, success bool, failReason string) {
	currentTime := time.Now()
	yearNumber, weekNumber := currentTime.ISOWeek()
	indexName := fmt.Sprintf("fleetwatch-match-events-%d-%d", yearNumber, weekNumber)

	elasticEvent, _ := json.Marshal(MatchElasticEvent{
		Timestamp: currentTime,

		Success:    success,
		FailReason: failReason,

		VehicleID: report.VehicleID,
		TripID:    tripID,
		RouteID:   routeID,

		DataSource: report.DataSource,
	})

	elastic_client.IndexRequest(indexName, bytes.NewReader(elasticEvent))
}
