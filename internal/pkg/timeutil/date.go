package timeutil

import (
	"fmt"
	"time"
)

// DateLayout is the wire form of calendar dates.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date into UTC midnight.
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}

// MustParseDate is ParseDate for literals; it panics on bad input.
func MustParseDate(s string) time.Time {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Date drops the clock part of t, keeping its calendar day as UTC midnight.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Combine places a time of day on a calendar date in loc.
func Combine(date time.Time, tod TimeOfDay, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc).Add(tod.Duration())
}

// DatesBetween enumerates the calendar dates from..to inclusive. When weekdays
// are given only matching dates are returned.
func DatesBetween(from, to time.Time, weekdays ...time.Weekday) []time.Time {
	from, to = Date(from), Date(to)
	allowed := make(map[time.Weekday]bool, len(weekdays))
	for _, w := range weekdays {
		allowed[w] = true
	}

	var dates []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if len(allowed) > 0 && !allowed[d.Weekday()] {
			continue
		}
		dates = append(dates, d)
	}
	return dates
}
