package bias

import (
	"testing"
	"time"
)

func TestLinearBiasAdjust(t *testing.T) {
	// A 20 minute prediction at rate 0.0006 accrues 7.2 percentage points,
	// inflating 1,200,000ms to 1,286,400ms.
	adjuster := NewLinearBiasAdjuster(0.0006, 1)

	adjustment := adjuster.Adjust(20 * time.Minute)

	if adjustment.Percentage != 7.2 {
		t.Errorf("Percentage = %v, want 7.2", adjustment.Percentage)
	}
	if adjustment.Prediction != 1286400*time.Millisecond {
		t.Errorf("Prediction = %s, want 1286400ms", adjustment.Prediction)
	}
}

func TestLinearBiasAdjustDeflates(t *testing.T) {
	adjuster := NewLinearBiasAdjuster(0.0006, -1)

	adjustment := adjuster.Adjust(20 * time.Minute)

	if adjustment.Prediction != 1113600*time.Millisecond {
		t.Errorf("Prediction = %s, want 1113600ms", adjustment.Prediction)
	}
}

// The percentage steps on full hundreds of milliseconds, so anything under
// 100ms accrues nothing.
func TestLinearBiasAdjustSubHundredMilliseconds(t *testing.T) {
	adjuster := NewLinearBiasAdjuster(0.0006, 1)

	adjustment := adjuster.Adjust(99 * time.Millisecond)

	if adjustment.Percentage != 0 {
		t.Errorf("Percentage = %v, want 0", adjustment.Percentage)
	}
	if adjustment.Prediction != 99*time.Millisecond {
		t.Errorf("Prediction = %s, want 99ms", adjustment.Prediction)
	}
}

func TestNullBiasAdjust(t *testing.T) {
	adjustment := NullBiasAdjuster{}.Adjust(5 * time.Minute)

	if adjustment.Prediction != 5*time.Minute || adjustment.Percentage != 0 {
		t.Errorf("Adjust = %+v, want the prediction untouched", adjustment)
	}
}

func TestNewResolvesByName(t *testing.T) {
	adjuster, err := New(Config{Name: "linear", Rate: 0.0006, Direction: 1})
	if err != nil {
		t.Fatalf("New(linear) returned error: %v", err)
	}
	if _, ok := adjuster.(*LinearBiasAdjuster); !ok {
		t.Errorf("New(linear) = %T, want *LinearBiasAdjuster", adjuster)
	}

	if _, err := New(Config{Name: "quadratic"}); err == nil {
		t.Error("New(quadratic) should fail for an unknown adjuster name")
	}
}
