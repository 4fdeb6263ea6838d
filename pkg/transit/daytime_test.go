package transit

import (
	"testing"
	"time"
)

func TestParseDayTime(t *testing.T) {
	tests := []struct {
		value   string
		want    DayTime
		wantErr bool
	}{
		{value: "00:00:00", want: 0},
		{value: "08:30:15", want: 8*3600 + 30*60 + 15},
		{value: "25:05:00", want: 25*3600 + 5*60},
		{value: "26:10:00", want: 26*3600 + 10*60},
		{value: "0830", wantErr: true},
		{value: "aa:bb:cc", wantErr: true},
		{value: "", wantErr: true},
	}

	for _, test := range tests {
		got, err := ParseDayTime(test.value)

		if test.wantErr {
			if err == nil {
				t.Errorf("ParseDayTime(%q) expected an error", test.value)
			}
			continue
		}

		if err != nil {
			t.Errorf("ParseDayTime(%q) returned error: %v", test.value, err)
			continue
		}
		if got != test.want {
			t.Errorf("ParseDayTime(%q) = %d, want %d", test.value, got, test.want)
		}
	}
}

func TestDayTimeString(t *testing.T) {
	value, _ := ParseDayTime("25:05:00")

	if value.String() != "25:05:00" {
		t.Errorf("String() = %q, want 25:05:00", value.String())
	}
}

func TestEpochTimeSameDay(t *testing.T) {
	reference := time.Date(2024, 3, 14, 8, 29, 0, 0, time.UTC)
	value, _ := ParseDayTime("08:30:00")

	want := time.Date(2024, 3, 14, 8, 30, 0, 0, time.UTC)
	if got := value.EpochTime(reference); !got.Equal(want) {
		t.Errorf("EpochTime = %s, want %s", got, want)
	}
}

// A schedule value past 24:00 belongs to the previous service day, so a
// vehicle observed shortly after 01:00 against a 25:05:00 schedule time
// must resolve onto the reference's own calendar day, not the next one.
func TestEpochTimePastMidnight(t *testing.T) {
	reference := time.Date(2024, 3, 15, 1, 7, 0, 0, time.UTC)
	value, _ := ParseDayTime("25:05:00")

	want := time.Date(2024, 3, 15, 1, 5, 0, 0, time.UTC)
	got := value.EpochTime(reference)

	if !got.Equal(want) {
		t.Errorf("EpochTime = %s, want %s", got, want)
	}

	adherence := NewTemporalDifference(got, reference)
	if adherence.Seconds() != -120 {
		t.Errorf("adherence = %.0fs, want -120s", adherence.Seconds())
	}
}

// Just before midnight, a small early-morning schedule value must resolve
// onto the following calendar day.
func TestEpochTimeBeforeMidnight(t *testing.T) {
	reference := time.Date(2024, 3, 14, 23, 58, 0, 0, time.UTC)
	value, _ := ParseDayTime("00:05:00")

	want := time.Date(2024, 3, 15, 0, 5, 0, 0, time.UTC)
	if got := value.EpochTime(reference); !got.Equal(want) {
		t.Errorf("EpochTime = %s, want %s", got, want)
	}
}
