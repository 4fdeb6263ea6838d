package bias

import (
	"fmt"
	"time"
)

// LinearBiasAdjuster applies a percentage that grows linearly with the
// prediction horizon: every full hundred milliseconds of the raw prediction
// contributes rate percentage points. The direction multiplier decides
// whether the correction inflates (+1) or deflates (-1) the prediction.
type LinearBiasAdjuster struct {
	rate      float64
	direction float64
}

func NewLinearBiasAdjuster(rate float64, direction float64) *LinearBiasAdjuster {
	return &LinearBiasAdjuster{
		rate:      rate,
		direction: direction,
	}
}

func (a *LinearBiasAdjuster) Adjust(prediction time.Duration) Adjustment {
	milliseconds := prediction.Milliseconds()

	percentage := float64(milliseconds/100) * a.rate
	adjusted := float64(milliseconds) + ((percentage / 100) * float64(milliseconds) * a.direction)

	return Adjustment{
		Prediction: time.Duration(adjusted) * time.Millisecond,
		Percentage: percentage,
	}
}

func (a *LinearBiasAdjuster) String() string {
	return fmt.Sprintf("LinearBiasAdjuster [rate=%v, direction=%v]", a.rate, a.direction)
}

// NullBiasAdjuster leaves predictions untouched.
type NullBiasAdjuster struct{}

func (NullBiasAdjuster) Adjust(prediction time.Duration) Adjustment {
	return Adjustment{Prediction: prediction}
}
