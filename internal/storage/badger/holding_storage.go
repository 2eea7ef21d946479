package badger

import (
	"context"
	"fmt"
	"sort"

	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
)

// HoldingEntry is a holding record stored in BadgerDB.
type HoldingEntry struct {
	ID      string `badgerhold:"key"`
	Holding models.Holding
}

type holdingStorage struct {
	store  *Store
	logger *common.Logger
}

// NewHoldingStorage creates a HoldingStorage backed by BadgerHold.
func NewHoldingStorage(store *Store, logger *common.Logger) *holdingStorage {
	return &holdingStorage{store: store, logger: logger}
}

func (s *holdingStorage) List(_ context.Context) ([]models.Holding, error) {
	var entries []HoldingEntry
	if err := s.store.db.Find(&entries, nil); err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}

	holdings := make([]models.Holding, 0, len(entries))
	for _, entry := range entries {
		holdings = append(holdings, entry.Holding)
	}
	sort.Slice(holdings, func(i, j int) bool { return holdings[i].Symbol < holdings[j].Symbol })
	return holdings, nil
}

func (s *holdingStorage) Upsert(_ context.Context, holding models.Holding) error {
	if holding.ID == "" {
		return fmt.Errorf("holding has no ID")
	}
	entry := HoldingEntry{ID: holding.ID, Holding: holding}
	if err := s.store.db.Upsert(holding.ID, &entry); err != nil {
		return fmt.Errorf("failed to upsert holding '%s': %w", holding.ID, err)
	}
	return nil
}

func (s *holdingStorage) Delete(_ context.Context, id string) error {
	err := s.store.db.Delete(id, HoldingEntry{})
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete holding '%s': %w", id, err)
	}
	return nil
}
