// Package interfaces defines service contracts for Folio
package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/folio/internal/models"
)

// PriceCacheStorage is the durable, TTL-aware cache of fetched price series,
// keyed by (identifier, period). A stale entry reads as a miss; it is not
// deleted eagerly. Writes are whole-entry replacements, last writer wins.
type PriceCacheStorage interface {
	// Get returns the cached series and true on a fresh hit.
	Get(ctx context.Context, symbol string, period models.Period) (models.PriceSeries, bool, error)

	// Set stores a fetched series. Synthetic series are refused silently;
	// fallback data must never be served from cache.
	Set(ctx context.Context, symbol string, period models.Period, series models.PriceSeries) error

	// Clear removes all cached series.
	Clear(ctx context.Context) error
}

// SnapshotStorage holds the capped, one-entry-per-day history of previously
// computed portfolio totals.
type SnapshotStorage interface {
	// Record stores a snapshot, replacing any existing entry for the same
	// calendar day and evicting the oldest entries beyond the cap.
	Record(ctx context.Context, snapshot models.DailySnapshot) error

	// GetRange returns snapshots with dates in [from, to], ascending.
	GetRange(ctx context.Context, from, to time.Time) ([]models.DailySnapshot, error)
}

// HoldingStorage persists the holdings list for the REST surface.
// The history engine itself only ever reads holdings.
type HoldingStorage interface {
	List(ctx context.Context) ([]models.Holding, error)
	Upsert(ctx context.Context, holding models.Holding) error
	Delete(ctx context.Context, id string) error
}

// StorageManager coordinates the storage areas.
type StorageManager interface {
	PriceCache() PriceCacheStorage
	Snapshots() SnapshotStorage
	Holdings() HoldingStorage
	Close() error
}
