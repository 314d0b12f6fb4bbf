package models

import "time"

// Range is a named history window.
type Range string

const (
	Range1w Range = "1w"
	Range1m Range = "1m"
	Range3m Range = "3m"
	Range1y Range = "1y"
)

// IsValidRange returns true if r is a supported range.
func IsValidRange(r Range) bool {
	switch r {
	case Range1w, Range1m, Range3m, Range1y:
		return true
	default:
		return false
	}
}

// DefaultRange returns the default history range.
func DefaultRange() Range { return Range1m }

// NormalizeRange converts a raw string to a valid range (or default).
func NormalizeRange(s string) Range {
	if s == "" {
		return DefaultRange()
	}
	r := Range(s)
	if IsValidRange(r) {
		return r
	}
	return DefaultRange()
}

// Window resolves the range to inclusive civil-day bounds ending today:
// start at 00:00 of the first day, end at 23:59:59.999 of now's day, both
// in loc.
func (r Range) Window(now time.Time, loc *time.Location) (time.Time, time.Time) {
	now = now.In(loc)
	start := now
	switch r {
	case Range1w:
		start = now.AddDate(0, 0, -7)
	case Range1m:
		start = now.AddDate(0, -1, 0)
	case Range3m:
		start = now.AddDate(0, -3, 0)
	case Range1y:
		start = now.AddDate(-1, 0, 0)
	default:
		start = now.AddDate(0, -1, 0)
	}
	from := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc).
		Add(24*time.Hour - time.Millisecond)
	return from, to
}
