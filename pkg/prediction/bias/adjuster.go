package bias

import (
	"fmt"
	"sort"
	"time"
)

// Adjustment is a bias corrected prediction plus the percentage that was
// actually applied, kept for diagnostics.
type Adjustment struct {
	Prediction time.Duration
	Percentage float64
}

// Adjuster transforms a raw predicted duration into a bias corrected one.
// Implementations are selected by name from configuration; callers only
// ever see this interface.
type Adjuster interface {
	Adjust(prediction time.Duration) Adjustment
}

// Config carries the options recognised by the built in adjusters.
type Config struct {
	Name string `yaml:"name"`

	// Linear adjuster options.
	Rate      float64 `yaml:"rate"`
	Direction float64 `yaml:"direction"`
}

type Factory func(Config) Adjuster

var factories = map[string]Factory{
	"linear": func(config Config) Adjuster {
		return NewLinearBiasAdjuster(config.Rate, config.Direction)
	},
	"null": func(Config) Adjuster {
		return NullBiasAdjuster{}
	},
}

// Register makes an additional adjuster strategy selectable by name.
func Register(name string, factory Factory) {
	factories[name] = factory
}

// New resolves the configured adjuster by name.
func New(config Config) (Adjuster, error) {
	factory, ok := factories[config.Name]
	if !ok {
		return nil, fmt.Errorf("unknown bias adjuster %q (known: %v)", config.Name, names())
	}

	return factory(config), nil
}

func names() []string {
	var known []string
	for name := range factories {
		known = append(known, name)
	}
	sort.Strings(known)

	return known
}
