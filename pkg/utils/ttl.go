package utils

import "time"

// IsStale reports whether data collected at last is older than ttl at now.
// A zero last time is always stale. Equal age is still fresh.
func IsStale(last time.Time, ttl time.Duration, now time.Time) bool {
	if last.IsZero() {
		return true
	}

	return now.Sub(last) > ttl
}
