package common

import "time"

// Freshness TTLs for cached price series, by granularity. Intraday data is
// volatile and expires quickly; daily candles are immutable once the day
// closes, so they can be held much longer.
const (
	FreshnessHourlySeries  = 5 * time.Minute
	FreshnessSixHourSeries = 30 * time.Minute
	FreshnessDailySeries   = 24 * time.Hour
)

// IsFresh returns true if the given timestamp is within the TTL
func IsFresh(updated time.Time, ttl time.Duration) bool {
	return IsFreshAt(updated, ttl, time.Now())
}

// IsFreshAt is IsFresh evaluated against an explicit clock.
func IsFreshAt(updated time.Time, ttl time.Duration, now time.Time) bool {
	if updated.IsZero() {
		return false
	}
	return now.Sub(updated) < ttl
}
