package utils

import "time"

// Clock abstracts time-dependent functionality for deterministic testing.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the standard library.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// ResolveClock substitutes the system clock when no clock is supplied.
func ResolveClock(clock Clock) Clock {
	if clock == nil {
		return SystemClock{}
	}
	return clock
}

// FormatTimestamp renders the governance timestamp format: UTC ISO-8601 with second precision.
func FormatTimestamp(instant time.Time) string {
	return instant.UTC().Truncate(time.Second).Format(time.RFC3339)
}
