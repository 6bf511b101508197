package mood

import (
	"fmt"
	"strings"
	"time"
)

// KeyLayout is the layout of a day key.
const KeyLayout = "2006-01-02"

var (
	zonedLayouts = []string{time.RFC3339Nano, time.RFC3339}
	// Wall-clock layouts carry no offset; their date part is already local.
	wallLayouts = []string{"2006-01-02 15:04:05", "2006-01-02T15:04:05"}
)

// DayKey returns the calendar-day key for t in t's own location. Two times on
// the same local day always produce the same key.
func DayKey(t time.Time) string {
	return t.Format(KeyLayout)
}

// ParseDayKey returns the first instant of the day identified by key in loc.
// That is midnight unless the zone skips midnight on that day.
func ParseDayKey(key string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.Parse(KeyLayout, strings.TrimSpace(key))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day key %q: %w", key, err)
	}
	y, m, d := t.Date()
	return StartOfDay(DayAt(y, m, d, loc)), nil
}

// NormalizeKey turns a day key or a timestamp into a day key. Timestamps
// carrying an offset are moved into loc first, so the key is the local day.
func NormalizeKey(raw string, loc *time.Location) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.Parse(KeyLayout, raw); err == nil {
		return DayKey(t), true
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return DayKey(t.In(loc)), true
		}
	}
	for _, layout := range wallLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return DayKey(t), true
		}
	}
	return "", false
}

// StartOfDay returns the first instant of t's day in t's location. Where a
// DST change skips midnight, that is the first hour after the gap.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	for i := 0; i < 24 && start.Day() != d; i++ {
		start = start.Add(time.Hour)
	}
	return start
}

// DayAt returns noon of the given day in loc. Day arithmetic anchored at noon
// stays on the intended day across DST changes. Out-of-range days normalize
// the way time.Date does.
func DayAt(year int, month time.Month, day int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(year, month, day, 12, 0, 0, 0, loc)
}

// AddDays returns noon of the day n days after t's day, in t's location.
func AddDays(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	return DayAt(y, m, d+n, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day in a's location.
func SameDay(a, b time.Time) bool {
	return DayKey(a) == DayKey(b.In(a.Location()))
}
