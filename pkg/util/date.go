package util

import (
    "strconv"
    "time"
)

var timeLayouts = []string{
    time.RFC3339,
    time.RFC3339Nano,
    "2006-01-02 15:04:05",
    "2006-01-02 15:04",
}

// ParseTime tries RFC3339, RFC3339Nano, civil "YYYY-MM-DD HH:MM[:SS]", and
// unix seconds. Offset-less layouts are read as UTC. Returns (t, true) if
// any worked.
func ParseTime(s string) (time.Time, bool) {
    return ParseTimeIn(s, time.UTC)
}

// ParseTimeIn is ParseTime with offset-less layouts read as civil time in
// loc. Layouts carrying an explicit offset keep it.
func ParseTimeIn(s string, loc *time.Location) (time.Time, bool) {
    if s == "" {
        return time.Time{}, false
    }
    for _, layout := range timeLayouts {
        if t, err := time.ParseInLocation(layout, s, loc); err == nil {
            return t, true
        }
    }
    if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
        return time.Unix(ts, 0), true
    }
    return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
    if t, ok := ParseTime(s); ok {
        return t
    }
    return def
}

// ParseCivilDate parses a "YYYY-MM-DD" date as midnight in loc.
func ParseCivilDate(s string, loc *time.Location) (time.Time, bool) {
    if s == "" {
        return time.Time{}, false
    }
    t, err := time.ParseInLocation("2006-01-02", s, loc)
    if err != nil {
        return time.Time{}, false
    }
    return t, true
}
