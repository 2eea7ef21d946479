package history

import (
	"time"

	"github.com/bobmcallan/folio/internal/models"
)

// Downsample reduces a raw price series to the canonical granularity for the
// period and snaps timestamps onto a fixed grid, so independently fetched
// series can later be merged by timestamp equality. The input is never
// mutated; the output holds new points.
//
// Policy: 24h keeps every 12th point snapped to the hour, 1w keeps every 6th
// point snapped to 6-hour boundaries, coarser periods collapse to the last
// observation per calendar day at midnight UTC. The most recent raw point is
// always preserved so the latest price is never dropped.
func Downsample(points []models.PricePoint, period models.Period) []models.PricePoint {
	if len(points) == 0 {
		return nil
	}

	switch period.Token {
	case models.Token24h:
		return strideSnap(points, 12, time.Hour)
	case models.Token1w:
		return strideSnap(points, 6, 6*time.Hour)
	default:
		return lastPerDay(points)
	}
}

// snapDown aligns an epoch-millis timestamp to the start of its bucket.
func snapDown(tsMillis int64, width time.Duration) int64 {
	w := width.Milliseconds()
	return tsMillis - tsMillis%w
}

// strideSnap keeps every Nth point with its timestamp snapped down to the
// bucket grid, then appends the raw final point.
func strideSnap(points []models.PricePoint, stride int, width time.Duration) []models.PricePoint {
	out := make([]models.PricePoint, 0, len(points)/stride+2)
	for i := 0; i < len(points); i += stride {
		p := points[i]
		out = append(out, models.NewPricePoint(snapDown(p.Timestamp, width), p.Price))
	}

	// Preserve the most recent raw observation, dropping any kept point it
	// would regress behind.
	last := points[len(points)-1]
	for len(out) > 0 && out[len(out)-1].Timestamp >= last.Timestamp {
		out = out[:len(out)-1]
	}
	return append(out, last)
}

// lastPerDay keeps the final observation of each calendar day (closing-price
// semantics) snapped to midnight UTC. Collapsing to one point per day is a
// correctness requirement for the merge step: two same-day points under
// different timestamps would aggregate into separate buckets.
func lastPerDay(points []models.PricePoint) []models.PricePoint {
	out := make([]models.PricePoint, 0, len(points))
	for i, p := range points {
		if i+1 < len(points) && points[i+1].Date == p.Date {
			continue
		}
		day, err := time.Parse("2006-01-02", p.Date)
		if err != nil {
			continue
		}
		out = append(out, models.NewPricePoint(day.UnixMilli(), p.Price))
	}

	// The most recent raw point replaces its day's midnight entry so the
	// latest observed price and timestamp survive.
	last := points[len(points)-1]
	if n := len(out); n > 0 && out[n-1].Date == last.Date {
		out[n-1] = last
	} else {
		out = append(out, last)
	}
	return out
}
