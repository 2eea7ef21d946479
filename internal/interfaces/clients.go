// Package interfaces defines service contracts for Folio
package interfaces

import (
	"context"
	"errors"

	"github.com/bobmcallan/folio/internal/models"
)

// ErrRateLimited is wrapped by client errors when the provider rejects a
// request with HTTP 429. The fetcher handles it like any transient failure
// but logs it distinctly.
var ErrRateLimited = errors.New("provider rate limit exceeded")

// MarketDataClient provides access to the external market-data provider.
type MarketDataClient interface {
	// GetMarketChart retrieves a raw price series for an identifier covering
	// the requested number of days (0 = maximum available history).
	// Points are returned in ascending timestamp order.
	GetMarketChart(ctx context.Context, id string, days int) ([]models.PricePoint, error)

	// GetSpotPrice retrieves the current price for an identifier.
	GetSpotPrice(ctx context.Context, id string) (float64, error)
}
