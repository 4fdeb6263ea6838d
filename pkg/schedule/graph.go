package schedule

import (
	"fmt"

	"github.com/fleetwatch/fleetwatch/pkg/transit"
)

// Graph is the read only schedule graph for one configuration revision.
// It is built once at startup and safe for concurrent reads.
type Graph struct {
	ConfigRev int

	blocks map[string]*transit.Block
	trips  map[string]TripAssignment

	// Canonical stop ordering per route direction, keyed by
	// route|direction|stop. Built from the longest trip pattern serving
	// the direction, since a direction can have several patterns.
	stopOrders map[string]int
}

// TripAssignment locates a trip within its owning block.
type TripAssignment struct {
	Block     *transit.Block
	TripIndex int
}

func NewGraph(configRev int, blocks []*transit.Block) *Graph {
	graph := &Graph{
		ConfigRev: configRev,

		blocks:     map[string]*transit.Block{},
		trips:      map[string]TripAssignment{},
		stopOrders: map[string]int{},
	}

	patternSizes := map[string]int{}

	for _, block := range blocks {
		graph.blocks[block.ID] = block

		for tripIndex, trip := range block.Trips {
			graph.trips[trip.ID] = TripAssignment{
				Block:     block,
				TripIndex: tripIndex,
			}

			directionKey := fmt.Sprintf("%s|%s", trip.RouteID, trip.DirectionID)
			if len(trip.StopPaths) <= patternSizes[directionKey] {
				continue
			}
			patternSizes[directionKey] = len(trip.StopPaths)

			for order, stopPath := range trip.StopPaths {
				graph.stopOrders[fmt.Sprintf("%s|%s", directionKey, stopPath.StopID)] = order
			}
		}
	}

	return graph
}

func (g *Graph) Block(blockID string) *transit.Block {
	return g.blocks[blockID]
}

func (g *Graph) TripAssignment(tripID string) (TripAssignment, bool) {
	assignment, ok := g.trips[tripID]
	return assignment, ok
}

// StopOrder returns the position of the stop within the route direction's
// canonical ordering, or nil when the stop is not part of it.
func (g *Graph) StopOrder(routeID string, directionID string, stopID string) *int {
	order, ok := g.stopOrders[fmt.Sprintf("%s|%s|%s", routeID, directionID, stopID)]
	if !ok {
		return nil
	}
	return &order
}
