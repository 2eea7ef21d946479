package badger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
)

// SeriesEntry is a cached price series stored in BadgerDB.
type SeriesEntry struct {
	Key      string `badgerhold:"key"`
	Points   []models.PricePoint
	StoredAt time.Time
}

type priceCacheStorage struct {
	store  *Store
	logger *common.Logger
	now    func() time.Time // injectable clock for TTL tests
}

// NewPriceCacheStorage creates a PriceCacheStorage backed by BadgerHold.
func NewPriceCacheStorage(store *Store, logger *common.Logger) *priceCacheStorage {
	return &priceCacheStorage{store: store, logger: logger, now: time.Now}
}

// cacheKey builds the "identifier_period" key for a series entry.
func cacheKey(symbol, token string) string {
	return fmt.Sprintf("%s_%s", strings.ToLower(symbol), token)
}

// Get returns the cached series and true when the entry exists and is still
// within the TTL for the requested period. A stale entry reads as a miss
// without being deleted; the next Set overwrites it.
func (s *priceCacheStorage) Get(_ context.Context, symbol string, period models.Period) (models.PriceSeries, bool, error) {
	key := cacheKey(symbol, period.Token)

	var entry SeriesEntry
	err := s.store.db.Get(key, &entry)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return models.PriceSeries{}, false, nil
		}
		return models.PriceSeries{}, false, fmt.Errorf("failed to get cache key '%s': %w", key, err)
	}

	if !common.IsFreshAt(entry.StoredAt, period.TTL(), s.now()) {
		s.logger.Debug().Str("key", key).Time("stored_at", entry.StoredAt).Msg("Cache entry stale, treating as miss")
		return models.PriceSeries{}, false, nil
	}

	return models.PriceSeries{Points: entry.Points, Source: models.SourceFetched}, true, nil
}

// Set stores a fetched series under the key for (symbol, period), replacing
// any previous entry. Synthetic series are refused; estimates must never be
// served as cached truth.
func (s *priceCacheStorage) Set(_ context.Context, symbol string, period models.Period, series models.PriceSeries) error {
	if series.Source == models.SourceSynthetic {
		s.logger.Debug().Str("symbol", symbol).Str("period", period.Token).Msg("Refusing to cache synthetic series")
		return nil
	}

	key := cacheKey(symbol, period.Token)
	entry := SeriesEntry{
		Key:      key,
		Points:   series.Points,
		StoredAt: s.now(),
	}
	if err := s.store.db.Upsert(key, &entry); err != nil {
		return fmt.Errorf("failed to set cache key '%s': %w", key, err)
	}
	return nil
}

// Clear removes all cached series entries.
func (s *priceCacheStorage) Clear(_ context.Context) error {
	if err := s.store.db.DeleteMatching(&SeriesEntry{}, nil); err != nil {
		return fmt.Errorf("failed to clear price cache: %w", err)
	}
	return nil
}
