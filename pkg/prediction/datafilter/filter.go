package datafilter

import (
	"fmt"
	"sort"
	"time"

	"github.com/fleetwatch/fleetwatch/pkg/transit"
)

// Filter decides whether an observed arrival/departure pair is admissible
// as training input for dwell time modelling. Implementations are selected
// by name from configuration and injected into whatever component needs
// them; callers only ever see this interface.
type Filter interface {
	Admit(arrival *transit.ArrivalDeparture, departure *transit.ArrivalDeparture) bool
}

// Config carries the options recognised by the built in filters.
type Config struct {
	Name string `yaml:"name"`

	// MaxDwell caps the dwell duration the default filter accepts.
	MaxDwell time.Duration `yaml:"max_dwell"`

	// Expression is the predicate source for the expression filter.
	Expression string `yaml:"expression"`
}

type Factory func(Config) (Filter, error)

var factories = map[string]Factory{
	"default": func(config Config) (Filter, error) {
		return NewDefaultFilter(config.MaxDwell), nil
	},
	"expression": func(config Config) (Filter, error) {
		return NewExpressionFilter(config.Expression)
	},
}

// Register makes an additional filter strategy selectable by name.
func Register(name string, factory Factory) {
	factories[name] = factory
}

// New resolves the configured filter by name.
func New(config Config) (Filter, error) {
	factory, ok := factories[config.Name]
	if !ok {
		return nil, fmt.Errorf("unknown dwell time filter %q (known: %v)", config.Name, names())
	}

	return factory(config)
}

func names() []string {
	var known []string
	for name := range factories {
		known = append(known, name)
	}
	sort.Strings(known)

	return known
}

const defaultMaxDwell = 30 * time.Minute

// DefaultFilter rejects pairs that cannot be a real dwell: mismatched trip
// or vehicle, a departure at or before its arrival, or an implausibly long
// stay at the stop.
type DefaultFilter struct {
	maxDwell time.Duration
}

func NewDefaultFilter(maxDwell time.Duration) *DefaultFilter {
	if maxDwell <= 0 {
		maxDwell = defaultMaxDwell
	}

	return &DefaultFilter{maxDwell: maxDwell}
}

func (f *DefaultFilter) Admit(arrival *transit.ArrivalDeparture, departure *transit.ArrivalDeparture) bool {
	if arrival == nil || departure == nil {
		return false
	}
	if !arrival.IsArrival || departure.IsArrival {
		return false
	}
	if arrival.VehicleID != departure.VehicleID || arrival.TripID != departure.TripID {
		return false
	}
	if arrival.StopID != departure.StopID || arrival.GtfsStopSeq != departure.GtfsStopSeq {
		return false
	}

	dwell := departure.Time.Sub(arrival.Time)

	return dwell > 0 && dwell <= f.maxDwell
}
