package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// startSnapshotScheduler records one total-value snapshot per calendar day.
// It wakes on a fixed interval and records only when today has no snapshot
// yet, so restarts and short intervals never produce duplicates.
func startSnapshotScheduler(ctx context.Context, historyService interfaces.HistoryService, storage interfaces.StorageManager, logger *common.Logger, interval time.Duration) {
	// Record once at startup, then on the ticker.
	recordDailySnapshot(ctx, historyService, storage, logger)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Snapshot scheduler: stopped")
			return
		case <-ticker.C:
			recordDailySnapshot(ctx, historyService, storage, logger)
		}
	}
}

func recordDailySnapshot(ctx context.Context, historyService interfaces.HistoryService, storage interfaces.StorageManager, logger *common.Logger) {
	start := time.Now()
	today := start.UTC().Truncate(24 * time.Hour)

	existing, err := storage.Snapshots().GetRange(ctx, today, today)
	if err != nil {
		logger.Warn().Err(err).Msg("Snapshot scheduler: range check failed")
		return
	}
	if len(existing) > 0 {
		return
	}

	holdings, err := storage.Holdings().List(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Snapshot scheduler: holdings unavailable")
		return
	}
	if len(holdings) == 0 {
		return
	}

	summary, err := historyService.CalculatePerformance(ctx, holdings, 1)
	if err != nil || summary == nil {
		logger.Warn().Err(err).Msg("Snapshot scheduler: no current value available")
		return
	}
	// A summary derived from recorded snapshots would just echo old data
	// back into the store.
	if summary.Accuracy == models.AccuracyRecorded {
		return
	}

	snapshot := models.DailySnapshot{
		ID:         uuid.New().String(),
		Date:       today.Format("2006-01-02"),
		Timestamp:  start.UTC().UnixMilli(),
		TotalValue: summary.Newest,
	}
	if err := storage.Snapshots().Record(ctx, snapshot); err != nil {
		logger.Warn().Err(err).Msg("Snapshot scheduler: record failed")
		return
	}

	logger.Info().
		Str("date", snapshot.Date).
		Float64("total", snapshot.TotalValue).
		Dur("elapsed", time.Since(start)).
		Msg("Snapshot scheduler: daily snapshot recorded")
}
