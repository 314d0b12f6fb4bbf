package util

import (
    "strconv"
    "testing"
    "time"
)

func TestParseTimeRFC3339(t *testing.T) {
    s := "2024-10-10T10:10:10Z"
    got, ok := ParseTime(s)
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.UTC().Format(time.RFC3339) != s {
        t.Fatalf("unexpected time %v", got)
    }
}

func TestParseTimeCivil(t *testing.T) {
    got, ok := ParseTime("2025-09-16 10:15")
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.Hour() != 10 || got.Minute() != 15 {
        t.Fatalf("unexpected time %v", got)
    }
}

func TestParseTimeUnix(t *testing.T) {
    ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
    got, ok := ParseTime(strconv.FormatInt(ts, 10))
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.Unix() != ts {
        t.Fatalf("unexpected unix %v", got.Unix())
    }
}

func TestParseTimeInCivilZone(t *testing.T) {
    loc := time.FixedZone("ICT", 7*3600)
    got, ok := ParseTimeIn("2025-09-16 10:15", loc)
    if !ok {
        t.Fatalf("expected ok")
    }
    want := time.Date(2025, 9, 16, 10, 15, 0, 0, loc)
    if !got.Equal(want) {
        t.Fatalf("unexpected time %v, want %v", got, want)
    }
}

func TestParseTimeInKeepsExplicitOffset(t *testing.T) {
    loc := time.FixedZone("ICT", 7*3600)
    got, ok := ParseTimeIn("2024-10-10T10:10:10Z", loc)
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.UTC().Hour() != 10 {
        t.Fatalf("offset not honored: %v", got)
    }
}

func TestParseTimeDefault(t *testing.T) {
    def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
    got := ParseTimeDefault("", def)
    if !got.Equal(def) {
        t.Fatalf("expected default")
    }
}

func TestParseCivilDate(t *testing.T) {
    loc := time.FixedZone("ICT", 7*3600)
    got, ok := ParseCivilDate("2025-09-16", loc)
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.Hour() != 0 || got.Day() != 16 {
        t.Fatalf("unexpected date %v", got)
    }
    if _, off := got.Zone(); off != 7*3600 {
        t.Fatalf("unexpected zone offset %d", off)
    }
}
