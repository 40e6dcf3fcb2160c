package calendar

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidClock = errors.New("invalid clock time")

// Clock is a time of day in minutes after midnight.
type Clock int

// ParseClock parses "HH:MM" (24h).
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return Clock(t.Hour()*60 + t.Minute()), nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// DayHours are the opening hours of one weekday.
type DayHours struct {
	Weekday time.Weekday
	Open    Clock
	Close   Clock
	Closed  bool
}

// Validate checks that an open day closes after it opens.
func (h DayHours) Validate() error {
	if h.Weekday < time.Sunday || h.Weekday > time.Saturday {
		return fmt.Errorf("weekday %d out of range", h.Weekday)
	}
	if !h.Closed && h.Close <= h.Open {
		return fmt.Errorf("%s: close %s must be after open %s", h.Weekday, h.Close, h.Open)
	}
	return nil
}

// WithinOpeningHours reports whether window, seen in loc, lies inside the
// opening hours of the day it starts on. A weekday missing from week is
// treated as unrestricted.
func WithinOpeningHours(window TimeRange, week []DayHours, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	w := window.In(loc)

	var day *DayHours
	for i := range week {
		if week[i].Weekday == w.Start.Weekday() {
			day = &week[i]
			break
		}
	}
	if day == nil {
		return true
	}
	if day.Closed {
		return false
	}

	y, m, d := w.Start.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, loc)
	open := TimeRange{
		Start: midnight.Add(time.Duration(day.Open) * time.Minute),
		End:   midnight.Add(time.Duration(day.Close) * time.Minute),
	}
	return !w.Start.Before(open.Start) && !w.End.After(open.End)
}
