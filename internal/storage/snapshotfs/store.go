// Package snapshotfs implements file-based storage for daily portfolio
// value snapshots: one JSON file holding a capped, date-ordered list.
package snapshotfs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
)

const snapshotFile = "snapshots.json"

// Store provides file-based JSON storage for daily snapshots. At most one
// entry exists per calendar day; the oldest entries beyond the cap are
// evicted on write.
type Store struct {
	basePath string
	logger   *common.Logger
	cap      int

	mu sync.Mutex
}

// NewStore creates a snapshot store rooted at the given directory.
func NewStore(logger *common.Logger, path string) (*Store, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot store path %s: %w", path, err)
	}

	logger.Info().Str("path", path).Msg("Snapshot store opened")
	return &Store{
		basePath: path,
		logger:   logger,
		cap:      models.SnapshotCap,
	}, nil
}

// Record stores a snapshot, replacing any existing entry for the same
// calendar day, then trims to the cap and writes atomically.
func (s *Store) Record(_ context.Context, snapshot models.DailySnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshots, err := s.load()
	if err != nil {
		return err
	}

	replaced := false
	for i, existing := range snapshots {
		if existing.Date == snapshot.Date {
			snapshots[i] = snapshot
			replaced = true
			break
		}
	}
	if !replaced {
		snapshots = append(snapshots, snapshot)
	}

	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].Date < snapshots[j].Date })

	if len(snapshots) > s.cap {
		snapshots = snapshots[len(snapshots)-s.cap:]
	}

	return s.write(snapshots)
}

// GetRange returns snapshots with dates in [from, to], ascending by date.
func (s *Store) GetRange(_ context.Context, from, to time.Time) ([]models.DailySnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshots, err := s.load()
	if err != nil {
		return nil, err
	}

	fromStr := from.UTC().Format("2006-01-02")
	toStr := to.UTC().Format("2006-01-02")

	var out []models.DailySnapshot
	for _, snap := range snapshots {
		if snap.Date >= fromStr && snap.Date <= toStr {
			out = append(out, snap)
		}
	}
	return out, nil
}

// load reads the snapshot file; a missing file is an empty list.
func (s *Store) load() ([]models.DailySnapshot, error) {
	data, err := os.ReadFile(filepath.Join(s.basePath, snapshotFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	var snapshots []models.DailySnapshot
	if err := json.Unmarshal(data, &snapshots); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot file: %w", err)
	}
	return snapshots, nil
}

// write persists the list atomically via a temp file and rename.
func (s *Store) write(snapshots []models.DailySnapshot) error {
	data, err := json.MarshalIndent(snapshots, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshots: %w", err)
	}

	target := filepath.Join(s.basePath, snapshotFile)

	tmpFile, err := os.CreateTemp(s.basePath, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace snapshot file: %w", err)
	}
	return nil
}
