// Package history reconstructs historical portfolio value from per-holding
// price series and derives performance statistics with a layered fallback
// chain: accurate purchase-aware reconstruction, then locally recorded
// snapshots, then an unanchored estimate.
package history

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
	"github.com/bobmcallan/folio/internal/ratelimit"
)

// syntheticJitterPct bounds the pseudo-random jitter applied to synthetic
// fallback points: within ±1% of the spot price.
const syntheticJitterPct = 0.01

// syntheticFallbackDays is the window generated for an all-time request when
// only a spot price is available.
const syntheticFallbackDays = 365

// Service implements HistoryService.
type Service struct {
	client  interfaces.MarketDataClient
	storage interfaces.StorageManager
	limiter *ratelimit.Limiter
	logger  *common.Logger
	now     func() time.Time // injectable clock for testing
	jitter  func() float64   // uniform in [-1, 1]; injectable for testing
}

// NewService creates a new history service. All outbound price-history
// requests pass through the given limiter.
func NewService(client interfaces.MarketDataClient, storage interfaces.StorageManager, limiter *ratelimit.Limiter, logger *common.Logger) *Service {
	return &Service{
		client:  client,
		storage: storage,
		limiter: limiter,
		logger:  logger,
		now:     time.Now,
		jitter:  func() float64 { return rand.Float64()*2 - 1 },
	}
}

// FetchHistory returns a downsampled price series for one identifier.
// Cache hits return immediately without touching the rate limiter. On a miss
// the fetch goes through the limiter and requests the period token's full
// span, so the cached entry covers every day count mapping onto that token;
// callers window the series down to the days they asked for. Provider
// failures (including 429) fall
// back to a synthetic jittered series around the spot price, which is never
// cached. When even the spot fetch fails the result is an empty series, not
// an error. Only cancellation surfaces as an error.
func (s *Service) FetchHistory(ctx context.Context, symbol string, days int) (models.PriceSeries, error) {
	period := models.PeriodForDays(days)
	cache := s.storage.PriceCache()

	series, hit, err := cache.Get(ctx, symbol, period)
	if err != nil {
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Price cache read failed")
	} else if hit {
		s.logger.Debug().Str("symbol", symbol).Str("period", period.Token).Msg("Price cache hit")
		return series, nil
	}

	raw, fetchErr := ratelimit.Do(ctx, s.limiter, func(ctx context.Context) ([]models.PricePoint, error) {
		return s.client.GetMarketChart(ctx, symbol, period.FetchDays())
	})
	if fetchErr == nil {
		result := models.PriceSeries{
			Points: Downsample(raw, period),
			Source: models.SourceFetched,
		}
		if err := ctx.Err(); err != nil {
			// Aborted mid-flight: do not populate the cache.
			return models.PriceSeries{}, err
		}
		if err := cache.Set(ctx, symbol, period, result); err != nil {
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Price cache write failed")
		}
		return result, nil
	}

	if err := ctx.Err(); err != nil {
		return models.PriceSeries{}, err
	}

	if errors.Is(fetchErr, interfaces.ErrRateLimited) {
		s.logger.Warn().Str("symbol", symbol).Msg("Provider rate limit hit, using synthetic fallback")
	} else {
		s.logger.Warn().Err(fetchErr).Str("symbol", symbol).Msg("History fetch failed, using synthetic fallback")
	}

	spot, spotErr := ratelimit.Do(ctx, s.limiter, func(ctx context.Context) (float64, error) {
		return s.client.GetSpotPrice(ctx, symbol)
	})
	if spotErr != nil {
		if err := ctx.Err(); err != nil {
			return models.PriceSeries{}, err
		}
		s.logger.Error().Err(spotErr).Str("symbol", symbol).Msg("Spot price fallback failed, returning empty series")
		return models.PriceSeries{Source: models.SourceSynthetic}, nil
	}

	return s.syntheticSeries(spot, days), nil
}

// syntheticSeries generates one daily point per requested day around the
// spot price, jittered within ±1%. The final point is the spot price itself.
func (s *Service) syntheticSeries(spot float64, days int) models.PriceSeries {
	if days <= 0 {
		days = syntheticFallbackDays
	}
	today := s.now().UTC().Truncate(24 * time.Hour)

	points := make([]models.PricePoint, 0, days)
	for i := days - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		price := spot
		if i != 0 {
			price = spot * (1 + s.jitter()*syntheticJitterPct)
		}
		points = append(points, models.NewPricePoint(day.UnixMilli(), price))
	}

	return models.PriceSeries{Points: points, Source: models.SourceSynthetic}
}

// Ensure Service implements HistoryService
var _ interfaces.HistoryService = (*Service)(nil)
