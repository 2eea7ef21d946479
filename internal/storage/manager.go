// Package storage provides the top-level StorageManager that coordinates
// the 2 storage areas: the BadgerHold cache store and the snapshot file store.
package storage

import (
	"fmt"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/storage/badger"
	"github.com/bobmcallan/folio/internal/storage/snapshotfs"
)

// Manager implements interfaces.StorageManager using 2 storage areas.
type Manager struct {
	cache      *badger.Store
	priceCache interfaces.PriceCacheStorage
	holdings   interfaces.HoldingStorage
	snapshots  *snapshotfs.Store
	logger     *common.Logger
}

// NewManager creates a new StorageManager with the 2 storage areas.
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	cacheStore, err := badger.NewStore(logger, config.Storage.Cache.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache store: %w", err)
	}

	snapshotStore, err := snapshotfs.NewStore(logger, config.Storage.Snapshots.Path)
	if err != nil {
		cacheStore.Close()
		return nil, fmt.Errorf("failed to create snapshot store: %w", err)
	}

	logger.Info().
		Str("cache", config.Storage.Cache.Path).
		Str("snapshots", config.Storage.Snapshots.Path).
		Msg("Storage manager initialized (2 areas)")

	return &Manager{
		cache:      cacheStore,
		priceCache: badger.NewPriceCacheStorage(cacheStore, logger),
		holdings:   badger.NewHoldingStorage(cacheStore, logger),
		snapshots:  snapshotStore,
		logger:     logger,
	}, nil
}

func (m *Manager) PriceCache() interfaces.PriceCacheStorage {
	return m.priceCache
}

func (m *Manager) Snapshots() interfaces.SnapshotStorage {
	return m.snapshots
}

func (m *Manager) Holdings() interfaces.HoldingStorage {
	return m.holdings
}

// Close closes all storage areas.
func (m *Manager) Close() error {
	return m.cache.Close()
}

// Ensure Manager implements StorageManager
var _ interfaces.StorageManager = (*Manager)(nil)
