package auth

import (
	"fmt"
	"time"

	"github.com/sahel-erp/sahel-erp/internal/shared"
)

// LoginWindow is the time-of-day range during which logins are accepted.
// Both bounds are inclusive at minute precision; Start after End wraps
// around midnight.
type LoginWindow struct {
	Start    shared.ClockTime
	End      shared.ClockTime
	Location *time.Location
}

// NewLoginWindow parses the HH:MM bounds.
func NewLoginWindow(start, end string, loc *time.Location) (LoginWindow, error) {
	s, err := shared.ParseClockTime(start)
	if err != nil {
		return LoginWindow{}, fmt.Errorf("login window start: %w", err)
	}
	e, err := shared.ParseClockTime(end)
	if err != nil {
		return LoginWindow{}, fmt.Errorf("login window end: %w", err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return LoginWindow{Start: s, End: e, Location: loc}, nil
}

// Contains reports whether t falls inside the window.
func (w LoginWindow) Contains(t time.Time) bool {
	loc := w.Location
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	m := local.Hour()*60 + local.Minute()
	start, end := w.Start.Minutes(), w.End.Minutes()
	if start <= end {
		return m >= start && m <= end
	}
	return m >= start || m <= end
}

func (w LoginWindow) String() string {
	return w.Start.String() + "-" + w.End.String()
}
