package models

import "time"

// SnapshotCap is the rolling window of daily snapshots the store retains.
const SnapshotCap = 365

// DailySnapshot is one locally recorded total-value observation, at most one
// per calendar day. Snapshots are the second fallback tier for performance
// calculations when accurate reconstruction is not possible.
type DailySnapshot struct {
	ID         string  `json:"id"`
	Date       string  `json:"date"`      // "2006-01-02" in UTC
	Timestamp  int64   `json:"timestamp"` // epoch millis
	TotalValue float64 `json:"total_value"`
}

// Time returns the snapshot timestamp as UTC.
func (s DailySnapshot) Time() time.Time {
	return time.UnixMilli(s.Timestamp).UTC()
}
