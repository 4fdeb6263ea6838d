package datafilter

import (
	"errors"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/fleetwatch/fleetwatch/pkg/transit"
	"github.com/rs/zerolog/log"
)

// ExpressionFilter evaluates a configured predicate over the pair, so the
// admission rule can be changed without a rebuild. The expression is
// compiled once at construction.
//
// Example: `DwellSeconds > 0 && DwellSeconds < 1200 && Arrival.TripID == Departure.TripID`
type ExpressionFilter struct {
	program *vm.Program
}

type expressionEnv struct {
	Arrival   *transit.ArrivalDeparture
	Departure *transit.ArrivalDeparture

	DwellSeconds float64
}

func NewExpressionFilter(expression string) (*ExpressionFilter, error) {
	if expression == "" {
		return nil, errors.New("expression filter requires an expression")
	}

	program, err := expr.Compile(expression, expr.Env(expressionEnv{}), expr.AsBool())
	if err != nil {
		return nil, err
	}

	return &ExpressionFilter{program: program}, nil
}

func (f *ExpressionFilter) Admit(arrival *transit.ArrivalDeparture, departure *transit.ArrivalDeparture) bool {
	if arrival == nil || departure == nil {
		return false
	}

	result, err := expr.Run(f.program, expressionEnv{
		Arrival:   arrival,
		Departure: departure,

		DwellSeconds: departure.Time.Sub(arrival.Time).Seconds(),
	})
	if err != nil {
		log.Error().Err(err).Msg("Dwell time filter expression failed")
		return false
	}

	admit, _ := result.(bool)
	return admit
}
