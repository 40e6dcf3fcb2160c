package calendar

import (
	"errors"
	"time"
)

var ErrInvalidWindow = errors.New("invalid time window")

// TimeRange is the half-open interval [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// NewWindow builds a range and rejects zero bounds and non-positive
// durations.
func NewWindow(start, end time.Time) (TimeRange, error) {
	if start.IsZero() || end.IsZero() {
		return TimeRange{}, ErrInvalidWindow
	}
	if !end.After(start) {
		return TimeRange{}, ErrInvalidWindow
	}
	return TimeRange{Start: start, End: end}, nil
}

// Duration of the range.
func (r TimeRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// In converts both bounds to loc.
func (r TimeRange) In(loc *time.Location) TimeRange {
	return TimeRange{Start: r.Start.In(loc), End: r.End.In(loc)}
}

// Overlaps is the only overlap predicate in the code base. Ranges touching
// at an endpoint do not overlap, so back-to-back bookings are allowed.
func Overlaps(a, b TimeRange) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}
