package history

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
	"github.com/bobmcallan/folio/internal/ratelimit"
)

// testToday is the fixed "now" used by most tests.
var testToday = time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)

// fakeClient is an in-memory MarketDataClient.
type fakeClient struct {
	mu         sync.Mutex
	charts     map[string][]models.PricePoint
	chartErrs  map[string]error
	spots      map[string]float64
	spotErrs   map[string]error
	chartCalls map[string]int
	chartDays  map[string]int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		charts:     make(map[string][]models.PricePoint),
		chartErrs:  make(map[string]error),
		spots:      make(map[string]float64),
		spotErrs:   make(map[string]error),
		chartCalls: make(map[string]int),
		chartDays:  make(map[string]int),
	}
}

func (c *fakeClient) GetMarketChart(ctx context.Context, id string, days int) ([]models.PricePoint, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chartCalls[id]++
	c.chartDays[id] = days
	if err := c.chartErrs[id]; err != nil {
		return nil, err
	}
	points, ok := c.charts[id]
	if !ok {
		return nil, fmt.Errorf("no chart fixture for id '%s'", id)
	}
	return points, nil
}

func (c *fakeClient) GetSpotPrice(ctx context.Context, id string) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.spotErrs[id]; err != nil {
		return 0, err
	}
	price, ok := c.spots[id]
	if !ok {
		return 0, fmt.Errorf("no spot fixture for id '%s'", id)
	}
	return price, nil
}

func (c *fakeClient) calls(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chartCalls[id]
}

func (c *fakeClient) lastDays(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chartDays[id]
}

// memStorage is an in-memory StorageManager.
type memStorage struct {
	cache     *memCache
	snapshots *memSnapshots
	holdings  *memHoldings
}

func newMemStorage() *memStorage {
	return &memStorage{
		cache:     &memCache{entries: make(map[string][]models.PricePoint)},
		snapshots: &memSnapshots{},
		holdings:  &memHoldings{byID: make(map[string]models.Holding)},
	}
}

func (m *memStorage) PriceCache() interfaces.PriceCacheStorage { return m.cache }
func (m *memStorage) Snapshots() interfaces.SnapshotStorage    { return m.snapshots }
func (m *memStorage) Holdings() interfaces.HoldingStorage      { return m.holdings }
func (m *memStorage) Close() error                             { return nil }

type memCache struct {
	mu      sync.Mutex
	entries map[string][]models.PricePoint
}

func (c *memCache) key(symbol string, period models.Period) string {
	return strings.ToLower(symbol) + "_" + period.Token
}

func (c *memCache) Get(_ context.Context, symbol string, period models.Period) (models.PriceSeries, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	points, ok := c.entries[c.key(symbol, period)]
	if !ok {
		return models.PriceSeries{}, false, nil
	}
	return models.PriceSeries{Points: points, Source: models.SourceFetched}, true, nil
}

func (c *memCache) Set(_ context.Context, symbol string, period models.Period, series models.PriceSeries) error {
	if series.Source == models.SourceSynthetic {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[c.key(symbol, period)] = series.Points
	return nil
}

func (c *memCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]models.PricePoint)
	return nil
}

type memSnapshots struct {
	mu    sync.Mutex
	snaps []models.DailySnapshot
}

func (s *memSnapshots) Record(_ context.Context, snapshot models.DailySnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps = append(s.snaps, snapshot)
	return nil
}

func (s *memSnapshots) GetRange(_ context.Context, from, to time.Time) ([]models.DailySnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fromStr := from.UTC().Format("2006-01-02")
	toStr := to.UTC().Format("2006-01-02")
	var out []models.DailySnapshot
	for _, snap := range s.snaps {
		if snap.Date >= fromStr && snap.Date <= toStr {
			out = append(out, snap)
		}
	}
	return out, nil
}

type memHoldings struct {
	mu   sync.Mutex
	byID map[string]models.Holding
}

func (h *memHoldings) List(_ context.Context) ([]models.Holding, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]models.Holding, 0, len(h.byID))
	for _, holding := range h.byID {
		out = append(out, holding)
	}
	return out, nil
}

func (h *memHoldings) Upsert(_ context.Context, holding models.Holding) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.byID[holding.ID] = holding
	return nil
}

func (h *memHoldings) Delete(_ context.Context, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.byID, id)
	return nil
}

// newTestService wires a Service with fakes, a generous limiter, a fixed
// clock, and deterministic jitter.
func newTestService(t *testing.T, client *fakeClient, storage *memStorage) *Service {
	t.Helper()
	limiter := ratelimit.New(1000, time.Second, nil)
	t.Cleanup(limiter.Close)

	svc := NewService(client, storage, limiter, common.NewSilentLogger())
	svc.now = func() time.Time { return testToday }
	svc.jitter = func() float64 { return 0.5 }
	return svc
}

// dailyPoints builds one midnight-UTC point per day in [from, to] inclusive
// at a flat price.
func dailyPoints(from, to string, price float64) []models.PricePoint {
	start, _ := time.Parse("2006-01-02", from)
	end, _ := time.Parse("2006-01-02", to)

	var points []models.PricePoint
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		points = append(points, models.NewPricePoint(d.UnixMilli(), price))
	}
	return points
}
