package transit

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DayTime is a GTFS style time of day in seconds past midnight of the
// service day. Values past 86400 are valid and refer to the next calendar
// day, so "25:30:00" is half one in the morning of the following day.
type DayTime int

func ParseDayTime(value string) (DayTime, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid time of day %q", value)
	}

	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hours in %q", value)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minutes in %q", value)
	}
	seconds, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, fmt.Errorf("invalid seconds in %q", value)
	}

	return DayTime(hours*3600 + minutes*60 + seconds), nil
}

func (t DayTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", int(t)/3600, (int(t)%3600)/60, int(t)%60)
}

// EpochTime resolves the time of day against the calendar day of the
// reference time. Because a schedule value past midnight belongs to the
// previous service day, the candidate on the reference's own day, the day
// before and the day after are all considered and the one closest to the
// reference wins.
func (t DayTime) EpochTime(reference time.Time) time.Time {
	year, month, day := reference.Date()
	dayStart := time.Date(year, month, day, 0, 0, 0, 0, reference.Location())

	offset := time.Duration(t) * time.Second

	best := dayStart.Add(offset)
	bestDelta := absDuration(reference.Sub(best))

	for _, days := range []int{-1, 1} {
		candidate := dayStart.AddDate(0, 0, days).Add(offset)
		if delta := absDuration(reference.Sub(candidate)); delta < bestDelta {
			best = candidate
			bestDelta = delta
		}
	}

	return best
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
