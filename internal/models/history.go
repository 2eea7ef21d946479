package models

import (
	"time"

	"github.com/bobmcallan/folio/internal/common"
)

// PricePoint is one observation in a price series. Date is the UTC calendar
// day derived from Timestamp; within one series timestamps are non-decreasing
// after bucketing.
type PricePoint struct {
	Date      string  `json:"date"`      // "2006-01-02" in UTC
	Timestamp int64   `json:"timestamp"` // epoch millis
	Price     float64 `json:"price"`
}

// NewPricePoint builds a point from an epoch-millis timestamp, deriving Date.
func NewPricePoint(tsMillis int64, price float64) PricePoint {
	return PricePoint{
		Date:      time.UnixMilli(tsMillis).UTC().Format("2006-01-02"),
		Timestamp: tsMillis,
		Price:     price,
	}
}

// Time returns the point's timestamp as a time.Time in UTC.
func (p PricePoint) Time() time.Time {
	return time.UnixMilli(p.Timestamp).UTC()
}

// SeriesSource records how a price series was obtained. Synthetic series are
// jittered estimates around a spot price, produced when the provider fails;
// they are never cached and their provenance is carried explicitly so
// downstream accuracy reporting does not have to guess.
type SeriesSource string

const (
	SourceFetched   SeriesSource = "fetched"
	SourceSynthetic SeriesSource = "synthetic"
)

// PriceSeries is a price history for one identifier, tagged with provenance.
type PriceSeries struct {
	Points []PricePoint `json:"points"`
	Source SeriesSource `json:"source"`
}

// Period is an enumerated timeframe with the provider token used for fetching
// and the day count used for bucketing-strategy selection.
type Period struct {
	Token string `json:"token"`
	Days  int    `json:"days"` // 0 means all-time
}

// Provider period tokens, coarsest window that covers the requested days.
const (
	Token24h = "24h"
	Token1w  = "1w"
	Token1m  = "1m"
	Token3m  = "3m"
	Token6m  = "6m"
	Token1y  = "1y"
	TokenAll = "all"
)

// PeriodForDays maps a requested day count onto the provider period token.
// days <= 0 is treated as all-time.
func PeriodForDays(days int) Period {
	switch {
	case days <= 0:
		return Period{Token: TokenAll, Days: 0}
	case days <= 1:
		return Period{Token: Token24h, Days: days}
	case days <= 7:
		return Period{Token: Token1w, Days: days}
	case days <= 30:
		return Period{Token: Token1m, Days: days}
	case days <= 90:
		return Period{Token: Token3m, Days: days}
	case days <= 180:
		return Period{Token: Token6m, Days: days}
	case days <= 365:
		return Period{Token: Token1y, Days: days}
	default:
		return Period{Token: TokenAll, Days: days}
	}
}

// FetchDays returns the span to request from the provider for this period's
// token: the widest day count that maps onto the token. Every request in a
// token band fetches the same span, so a cached series always covers any
// later request sharing the token. 0 means maximum available history.
func (p Period) FetchDays() int {
	switch p.Token {
	case Token24h:
		return 1
	case Token1w:
		return 7
	case Token1m:
		return 30
	case Token3m:
		return 90
	case Token6m:
		return 180
	case Token1y:
		return 365
	default:
		return 0
	}
}

// BucketWidth returns the aggregation grid width for this period:
// hourly for intraday, 6-hourly up to a week, daily beyond.
func (p Period) BucketWidth() time.Duration {
	switch {
	case p.Days > 0 && p.Days <= 1:
		return time.Hour
	case p.Days > 1 && p.Days <= 7:
		return 6 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// TTL returns how long a cached series for this period stays usable.
func (p Period) TTL() time.Duration {
	switch p.BucketWidth() {
	case time.Hour:
		return common.FreshnessHourlySeries
	case 6 * time.Hour:
		return common.FreshnessSixHourSeries
	default:
		return common.FreshnessDailySeries
	}
}

// HoldingValue is one holding's contribution to a portfolio history bucket.
type HoldingValue struct {
	Value   float64 `json:"value"`
	Price   float64 `json:"price"`
	Balance float64 `json:"balance"`
}

// PortfolioHistoryPoint is one grid-aligned bucket of reconstructed portfolio
// value. Total always equals the sum of Categories, which always equals the
// sum of Breakdown values.
type PortfolioHistoryPoint struct {
	Timestamp  int64                   `json:"timestamp"` // grid-aligned epoch millis
	Date       string                  `json:"date"`
	Total      float64                 `json:"total"`
	Categories map[Category]float64    `json:"categories"`
	Breakdown  map[string]HoldingValue `json:"breakdown"` // keyed by holding ID
}

// Accuracy indicates which fallback tier produced a performance result.
type Accuracy string

const (
	AccuracyAccurate     Accuracy = "accurate"     // purchase-aware reconstruction
	AccuracyRecorded     Accuracy = "recorded"     // locally recorded daily snapshots
	AccuracyHypothetical Accuracy = "hypothetical" // unanchored full-history estimate
)

// PerformanceSummary is the outcome of a performance calculation: summary
// statistics over the chosen series, tagged with how it was derived.
type PerformanceSummary struct {
	Oldest     float64                 `json:"oldest"`
	Newest     float64                 `json:"newest"`
	Change     float64                 `json:"change"`
	ChangePct  float64                 `json:"change_pct"`
	High       float64                 `json:"high"`
	Low        float64                 `json:"low"`
	Avg        float64                 `json:"avg"`
	DataPoints int                     `json:"data_points"`
	Series     []PortfolioHistoryPoint `json:"series"`
	Accuracy   Accuracy                `json:"accuracy"`
	Synthetic  bool                    `json:"synthetic"` // true when any contributing series was synthetic
}
