package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bobmcallan/folio/internal/models"
)

// Reconstruct merges each eligible holding's price history into one
// grid-aligned, purchase-aware portfolio-value series. days <= 0 means
// all-time. Holdings without a symbol or purchase date are excluded here;
// the performance fallback chain handles them.
func (s *Service) Reconstruct(ctx context.Context, holdings []models.Holding, days int) ([]models.PortfolioHistoryPoint, error) {
	points, _, err := s.reconstruct(ctx, holdings, days, true)
	return points, err
}

// reconstruct is the shared implementation behind the accurate tier
// (purchaseAware) and the unanchored hypothetical tier. It reports whether
// any contributing series was synthetic.
func (s *Service) reconstruct(ctx context.Context, holdings []models.Holding, days int, purchaseAware bool) ([]models.PortfolioHistoryPoint, bool, error) {
	now := s.now().UTC()
	today := now.Truncate(24 * time.Hour)

	for _, h := range holdings {
		if err := h.Validate(now); err != nil {
			return nil, false, err
		}
	}

	var eligible []models.Holding
	for _, h := range holdings {
		if h.Symbol == "" {
			continue
		}
		if purchaseAware {
			if _, ok := h.PurchaseTime(); !ok {
				continue
			}
		}
		eligible = append(eligible, h)
	}
	if len(eligible) == 0 {
		return nil, false, nil
	}

	start, fetchDays := s.window(eligible, days, today, purchaseAware)

	// Fan out one fetch per holding through the rate limiter and await all
	// of them. A single holding's failure degrades to an empty series; it
	// never aborts the siblings.
	results := make([]models.PriceSeries, len(eligible))
	var wg sync.WaitGroup
	for i, h := range eligible {
		wg.Add(1)
		go func(i int, h models.Holding) {
			defer wg.Done()
			series, err := s.FetchHistory(ctx, h.Symbol, fetchDays)
			if err != nil {
				s.logger.Warn().Err(err).Str("symbol", h.Symbol).Msg("Holding history unavailable, excluding from reconstruction")
				return
			}
			results[i] = series
		}(i, h)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	bucketWidth := models.PeriodForDays(days).BucketWidth()
	longTerm := days <= 0 || days > 7

	synthetic := false
	buckets := make(map[int64]*models.PortfolioHistoryPoint)

	for i, h := range eligible {
		series := results[i]
		if len(series.Points) == 0 {
			continue
		}
		if series.Source == models.SourceSynthetic {
			synthetic = true
		}

		filtered := filterHoldingSeries(series.Points, h, start, now, purchaseAware, longTerm)
		filtered = ensurePurchasePoint(filtered, h, start, purchaseAware)

		purchase, hasPurchase := h.PurchaseTime()

		for _, p := range filtered {
			ts := snapDown(p.Timestamp, bucketWidth)
			pt, ok := buckets[ts]
			if !ok {
				pt = &models.PortfolioHistoryPoint{
					Timestamp:  ts,
					Date:       time.UnixMilli(ts).UTC().Format("2006-01-02"),
					Categories: make(map[models.Category]float64),
					Breakdown:  make(map[string]models.HoldingValue),
				}
				buckets[ts] = pt
			}

			value := p.Price * h.Balance
			if purchaseAware && hasPurchase && p.Date < purchase.Format("2006-01-02") {
				// Zero-fill: pre-purchase buckets contribute nothing,
				// producing the flat pre-ownership baseline.
				value = 0
			}

			// A holding may land several raw points in one bucket; replace
			// its previous contribution instead of summing blindly.
			if prev, exists := pt.Breakdown[h.ID]; exists {
				pt.Total -= prev.Value
				pt.Categories[h.Category] -= prev.Value
			}

			pt.Breakdown[h.ID] = models.HoldingValue{Value: value, Price: p.Price, Balance: h.Balance}
			pt.Categories[h.Category] += value
			pt.Total += value
		}
	}

	out := make([]models.PortfolioHistoryPoint, 0, len(buckets))
	for _, pt := range buckets {
		out = append(out, *pt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })

	return out, synthetic, nil
}

// window determines the absolute window start and the day count to request
// per holding so the fetch covers [start, today].
func (s *Service) window(eligible []models.Holding, days int, today time.Time, purchaseAware bool) (time.Time, int) {
	if days > 0 {
		return today.AddDate(0, 0, -days), days
	}

	// All-time: anchored at the earliest purchase when reconstructing
	// accurately, otherwise unbounded (fetch maximum history).
	if !purchaseAware {
		return time.Time{}, 0
	}

	var earliest time.Time
	for _, h := range eligible {
		if pt, ok := h.PurchaseTime(); ok {
			if earliest.IsZero() || pt.Before(earliest) {
				earliest = pt
			}
		}
	}
	if earliest.IsZero() {
		return time.Time{}, 0
	}
	fetchDays := int(today.Sub(earliest).Hours()/24) + 1
	return earliest, fetchDays
}

// filterHoldingSeries drops future-dated points and points outside the
// requested window. Long-term windows additionally zoom to the holding's
// active history (on/after its purchase date); short-term windows keep the
// pre-purchase segment so the chart can show the flat baseline for context.
func filterHoldingSeries(points []models.PricePoint, h models.Holding, start, now time.Time, purchaseAware, longTerm bool) []models.PricePoint {
	purchase, hasPurchase := h.PurchaseTime()
	purchaseDate := ""
	if hasPurchase {
		purchaseDate = purchase.Format("2006-01-02")
	}

	out := make([]models.PricePoint, 0, len(points))
	for _, p := range points {
		t := p.Time()
		if t.After(now) {
			continue
		}
		if !start.IsZero() && t.Before(start) {
			continue
		}
		if purchaseAware && longTerm && hasPurchase && p.Date < purchaseDate {
			continue
		}
		out = append(out, p)
	}
	return out
}

// ensurePurchasePoint inserts a synthesized point at (purchaseDate, buyPrice)
// when the series has no observation on the purchase day, guaranteeing the
// holding is anchored at its cost basis. The window check allows one day of
// slack since the window boundary rarely lands exactly on a purchase-day
// midnight.
func ensurePurchasePoint(points []models.PricePoint, h models.Holding, start time.Time, purchaseAware bool) []models.PricePoint {
	if !purchaseAware || h.BuyPrice <= 0 {
		return points
	}
	purchase, ok := h.PurchaseTime()
	if !ok {
		return points
	}
	if !start.IsZero() && purchase.Before(start.AddDate(0, 0, -1)) {
		return points
	}

	purchaseDate := purchase.Format("2006-01-02")
	for _, p := range points {
		if p.Date == purchaseDate {
			return points
		}
	}

	points = append(points, models.NewPricePoint(purchase.UnixMilli(), h.BuyPrice))
	sort.Slice(points, func(i, j int) bool { return points[i].Timestamp < points[j].Timestamp })
	return points
}
