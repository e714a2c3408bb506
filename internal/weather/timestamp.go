package weather

import (
	"fmt"
	"regexp"
	"time"
)

const (
	// UpstreamLayout is how WeatherAPI.com reports local times.
	UpstreamLayout = "2006-01-02 15:04"
	// CanonicalLayout is used for display and storage.
	CanonicalLayout = "2006-01-02 15:04:05"
	// DateLayout is used for calendar days.
	DateLayout = "2006-01-02"
)

// time.Parse tolerates single-digit hours, so the shape is checked first.
var upstreamPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}$`)

// NormalizeTimestamp rewrites an upstream timestamp into CanonicalLayout.
// The instant is treated as naive local time; nil in, nil out.
func NormalizeTimestamp(raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	if !upstreamPattern.MatchString(*raw) {
		return nil, fmt.Errorf("%w: %q does not match %q", ErrFormat, *raw, UpstreamLayout)
	}
	t, err := time.Parse(UpstreamLayout, *raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrFormat, *raw, err)
	}
	out := FormatTimestamp(t)
	return &out, nil
}

// ParseTimestamp parses a CanonicalLayout string.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(CanonicalLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrFormat, s, err)
	}
	return t, nil
}

// FormatTimestamp renders t in CanonicalLayout.
func FormatTimestamp(t time.Time) string {
	return t.Format(CanonicalLayout)
}
