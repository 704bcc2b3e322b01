// Package schedule provides the calendar primitives the scheduling engine is
// built on: timezone-free local times of day, date-expression parsing, and
// fixed-length slot enumeration within a working window.
package schedule

import (
	"fmt"
	"strings"
	"time"
)

// TimeOfDay is a clock time expressed as minutes since local midnight.
// Doctors' working windows and appointment slots are local wall-clock
// times with no timezone attached, so a plain minute count is enough.
type TimeOfDay int

// ParseTimeOfDay parses a 24-hour "15:04" clock string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("schedule: parse time of day %q: %w", s, err)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

// MustTimeOfDay is ParseTimeOfDay for static catalogue data; it panics on
// malformed input.
func MustTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// String renders the time back as "15:04".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Add returns the time shifted by d, which must be a whole number of minutes.
func (t TimeOfDay) Add(d time.Duration) TimeOfDay {
	return t + TimeOfDay(d/time.Minute)
}

// MarshalJSON renders the time as a "15:04" string on the wire.
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON parses the "15:04" wire form.
func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ClockOf extracts the local time of day from an instant.
func ClockOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

// Interval is a half-open [Start, End) span within a single day.
type Interval struct {
	Start TimeOfDay
	End   TimeOfDay
}

// EnumerateSlots cuts the [start, end) working window into contiguous
// fixed-length intervals. The last interval always ends at or before end;
// a trailing remainder shorter than duration is dropped.
func EnumerateSlots(start, end TimeOfDay, duration time.Duration) []Interval {
	step := TimeOfDay(duration / time.Minute)
	if step <= 0 || start >= end {
		return nil
	}
	var slots []Interval
	for cur := start; cur+step <= end; cur += step {
		slots = append(slots, Interval{Start: cur, End: cur + step})
	}
	return slots
}
