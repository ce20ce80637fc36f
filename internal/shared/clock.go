package shared

import (
	"fmt"
	"time"
)

// ClockTime is a wall-clock time of day with minute precision.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClockTime parses "HH:MM".
func ParseClockTime(raw string) (ClockTime, error) {
	t, err := time.Parse("15:04", raw)
	if err != nil {
		return ClockTime{}, fmt.Errorf("invalid clock time %q: expected HH:MM", raw)
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// MustClockTime is ParseClockTime for constants.
func MustClockTime(raw string) ClockTime {
	c, err := ParseClockTime(raw)
	if err != nil {
		panic(err)
	}
	return c
}

// Minutes returns the number of minutes since midnight.
func (c ClockTime) Minutes() int {
	return c.Hour*60 + c.Minute
}

// String formats c as HH:MM.
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// IsExceededBy reports whether t, read in loc, is strictly later than c.
// Seconds count: 09:15:01 exceeds 09:15.
func (c ClockTime) IsExceededBy(t time.Time, loc *time.Location) bool {
	local := t.In(loc)
	secs := local.Hour()*3600 + local.Minute()*60 + local.Second()
	return secs > c.Minutes()*60 || (secs == c.Minutes()*60 && local.Nanosecond() > 0)
}

// BusinessDate returns the calendar date of t in loc, at UTC midnight.
func BusinessDate(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}
