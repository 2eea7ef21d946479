package history

import (
	"context"
	"time"

	"github.com/bobmcallan/folio/internal/models"
)

// CalculatePerformance derives summary statistics for the requested window
// using a three-tier fallback chain: accurate purchase-aware reconstruction,
// locally recorded daily snapshots, then an unanchored estimate over every
// holding with a symbol. Each tier needs at least 2 points. The result is
// tagged with the tier that produced it; nil means all tiers were exhausted.
// Cancellation aborts the chain instead of falling through to a lower tier.
func (s *Service) CalculatePerformance(ctx context.Context, holdings []models.Holding, days int) (*models.PerformanceSummary, error) {
	points, synthetic, err := s.reconstruct(ctx, holdings, days, true)
	if err != nil {
		return nil, err
	}
	if len(points) >= 2 {
		s.logger.Debug().Int("points", len(points)).Msg("Performance from accurate reconstruction")
		return summarize(points, models.AccuracyAccurate, synthetic), nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if summary := s.performanceFromSnapshots(ctx, days); summary != nil {
		s.logger.Debug().Int("points", summary.DataPoints).Msg("Performance from recorded snapshots")
		return summary, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	points, synthetic, err = s.reconstruct(ctx, holdings, days, false)
	if err != nil {
		return nil, err
	}
	if len(points) >= 2 {
		s.logger.Debug().Int("points", len(points)).Msg("Performance from unanchored estimate")
		return summarize(points, models.AccuracyHypothetical, synthetic), nil
	}

	s.logger.Debug().Int("holdings", len(holdings)).Msg("No performance data available for window")
	return nil, nil
}

// performanceFromSnapshots builds a summary from the recorded daily
// snapshots when at least 2 fall inside the window.
func (s *Service) performanceFromSnapshots(ctx context.Context, days int) *models.PerformanceSummary {
	today := s.now().UTC().Truncate(24 * time.Hour)
	from := time.Time{}
	if days > 0 {
		from = today.AddDate(0, 0, -days)
	}

	snaps, err := s.storage.Snapshots().GetRange(ctx, from, today)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Snapshot store read failed")
		return nil
	}
	if len(snaps) < 2 {
		return nil
	}

	points := make([]models.PortfolioHistoryPoint, len(snaps))
	for i, snap := range snaps {
		points[i] = models.PortfolioHistoryPoint{
			Timestamp: snap.Timestamp,
			Date:      snap.Date,
			Total:     snap.TotalValue,
		}
	}
	return summarize(points, models.AccuracyRecorded, false)
}

// summarize computes summary statistics over a series. Points must already
// be sorted ascending by timestamp.
func summarize(points []models.PortfolioHistoryPoint, accuracy models.Accuracy, synthetic bool) *models.PerformanceSummary {
	oldest := points[0].Total
	newest := points[len(points)-1].Total

	change := newest - oldest
	changePct := 0.0
	if oldest != 0 {
		changePct = change / oldest * 100
	}

	high := points[0].Total
	low := points[0].Total
	sum := 0.0
	for _, p := range points {
		if p.Total > high {
			high = p.Total
		}
		if p.Total < low {
			low = p.Total
		}
		sum += p.Total
	}

	return &models.PerformanceSummary{
		Oldest:     oldest,
		Newest:     newest,
		Change:     change,
		ChangePct:  changePct,
		High:       high,
		Low:        low,
		Avg:        sum / float64(len(points)),
		DataPoints: len(points),
		Series:     points,
		Accuracy:   accuracy,
		Synthetic:  synthetic,
	}
}
