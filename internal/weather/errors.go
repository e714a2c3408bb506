package weather

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned for missing locations, bad day counts and similar caller mistakes.
	ErrInvalidInput = errors.New("invalid input")
	// ErrLocationNotFound is returned when a city cannot be resolved, even after a fetch.
	ErrLocationNotFound = errors.New("location not found")
	// ErrUpstream wraps transport, decoding and API-level failures from the weather service.
	ErrUpstream = errors.New("upstream request failed")
	// ErrFormat is returned when an upstream timestamp does not match the expected layout.
	ErrFormat = errors.New("unexpected timestamp format")
	// ErrNoForecastData is returned when a resolved location has no rows in the requested horizon.
	ErrNoForecastData = errors.New("no forecast data")
)

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// ValidateDays rejects non-positive day counts.
func ValidateDays(days int) error {
	if days <= 0 {
		return invalidInput("days must be a positive integer, got %d", days)
	}
	return nil
}
