package ast

import (
	"fmt"
	"strings"
	"time"
)

// timestampLayouts are accepted ISO-8601 forms, most specific first.
// Layouts without a zone designator are interpreted as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 instant. The result is normalized
// to UTC.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid ISO-8601 instant %q", s)
}

// ParseInterval parses a start/end ISO-8601 interval pair.
func ParseInterval(s string) (start, end time.Time, err error) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid interval %q: expected start/end", s)
	}
	if start, err = ParseTimestamp(parts[0]); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid interval start: %w", err)
	}
	if end, err = ParseTimestamp(parts[1]); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid interval end: %w", err)
	}
	return start, end, nil
}

// FormatTimestamp renders an instant in the canonical RFC 3339 UTC form.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// unitsInMeters maps supported distance units to meters.
var unitsInMeters = map[string]float64{
	"m":          1,
	"meters":     1,
	"metre":      1,
	"metres":     1,
	"km":         1000,
	"kilometers": 1000,
	"ft":         0.3048,
	"feet":       0.3048,
	"mi":         1609.344,
	"miles":      1609.344,
}

// DistanceInMeters converts a distance with units to meters.
func DistanceInMeters(distance float64, units string) (float64, error) {
	factor, ok := unitsInMeters[strings.ToLower(units)]
	if !ok {
		return 0, fmt.Errorf("unknown distance unit %q", units)
	}
	return distance * factor, nil
}
