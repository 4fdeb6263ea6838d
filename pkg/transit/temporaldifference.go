package transit

import (
	"fmt"
	"time"
)

// TemporalDifference is a signed schedule adherence value, computed as
// scheduled minus actual. Positive means the vehicle is early against the
// schedule, negative means late.
type TemporalDifference time.Duration

func NewTemporalDifference(scheduled time.Time, actual time.Time) TemporalDifference {
	return TemporalDifference(scheduled.Sub(actual))
}

func (t TemporalDifference) IsEarly() bool {
	return t > 0
}

func (t TemporalDifference) IsLate() bool {
	return t < 0
}

func (t TemporalDifference) Duration() time.Duration {
	return time.Duration(t)
}

func (t TemporalDifference) Seconds() float64 {
	return time.Duration(t).Seconds()
}

// IsWithinBounds reports whether the adherence lies inside the allowed
// early/late margins. Both margins are given as positive durations.
func (t TemporalDifference) IsWithinBounds(allowableEarly time.Duration, allowableLate time.Duration) bool {
	return time.Duration(t) <= allowableEarly && time.Duration(t) >= -allowableLate
}

func (t TemporalDifference) String() string {
	seconds := t.Seconds()
	if seconds >= 0 {
		return fmt.Sprintf("%.0fs early", seconds)
	}
	return fmt.Sprintf("%.0fs late", -seconds)
}
