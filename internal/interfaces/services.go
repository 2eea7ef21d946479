// Package interfaces defines service contracts for Folio
package interfaces

import (
	"context"

	"github.com/bobmcallan/folio/internal/models"
)

// HistoryService reconstructs portfolio value history and derives
// performance statistics from it.
type HistoryService interface {
	// FetchHistory returns a downsampled price series for one identifier,
	// cache-first, rate-limited on miss, with a synthetic fallback when the
	// provider fails. Only cancellation surfaces as an error.
	FetchHistory(ctx context.Context, symbol string, days int) (models.PriceSeries, error)

	// Reconstruct merges per-holding price histories into one purchase-aware
	// aggregated portfolio-value series. days <= 0 means all-time.
	Reconstruct(ctx context.Context, holdings []models.Holding, days int) ([]models.PortfolioHistoryPoint, error)

	// CalculatePerformance derives summary statistics for the requested
	// window, trying accurate reconstruction, then recorded snapshots, then
	// an unanchored estimate. Returns nil when all tiers are exhausted.
	CalculatePerformance(ctx context.Context, holdings []models.Holding, days int) (*models.PerformanceSummary, error)
}
