package common

import "time"

// Freshness TTLs for stored data
const (
	// FreshnessDailyBar bounds how long a stored daily series is served
	// without attempting an on-demand refresh on the read path.
	FreshnessDailyBar = 1 * time.Hour
)

// IsFresh returns true if the given timestamp is within the TTL
func IsFresh(updated time.Time, ttl time.Duration) bool {
	if updated.IsZero() {
		return false
	}
	return time.Since(updated) < ttl
}
