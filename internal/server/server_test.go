package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/folio/internal/app"
	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
	"github.com/bobmcallan/folio/internal/storage"
)

// stubHistory returns canned results for the history endpoints.
type stubHistory struct {
	points  []models.PortfolioHistoryPoint
	summary *models.PerformanceSummary
	err     error
}

func (s *stubHistory) FetchHistory(context.Context, string, int) (models.PriceSeries, error) {
	return models.PriceSeries{}, nil
}

func (s *stubHistory) Reconstruct(context.Context, []models.Holding, int) ([]models.PortfolioHistoryPoint, error) {
	return s.points, s.err
}

func (s *stubHistory) CalculatePerformance(context.Context, []models.Holding, int) (*models.PerformanceSummary, error) {
	return s.summary, s.err
}

func newTestServer(t *testing.T, hist *stubHistory) *Server {
	t.Helper()

	config := common.DefaultConfig()
	config.Storage.Cache.Path = t.TempDir()
	config.Storage.Snapshots.Path = t.TempDir()

	logger := common.NewSilentLogger()
	manager, err := storage.NewManager(logger, config)
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })

	a := &app.App{
		Config:         config,
		Logger:         logger,
		Storage:        manager,
		HistoryService: hist,
	}
	return NewServer(a)
}

func doRequest(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, &stubHistory{})

	rec := doRequest(t, s, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestVersionEndpoint(t *testing.T) {
	s := newTestServer(t, &stubHistory{})

	rec := doRequest(t, s, http.MethodGet, "/api/version", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Contains(t, body, "version")
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, &stubHistory{})

	rec := doRequest(t, s, http.MethodPost, "/api/health", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, rec.Header().Get("Allow"), http.MethodGet)
}

func TestHoldingCRUD(t *testing.T) {
	s := newTestServer(t, &stubHistory{})

	// Create
	rec := doRequest(t, s, http.MethodPost, "/api/holdings", holdingRequest{
		Symbol: "bitcoin", Category: models.CategoryCrypto, Balance: 1.5,
		PurchaseDate: "2024-01-01", BuyPrice: 40000,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.Holding
	decodeBody(t, rec, &created)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "bitcoin", created.Symbol)

	// Get
	rec = doRequest(t, s, http.MethodGet, "/api/holdings/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Update
	rec = doRequest(t, s, http.MethodPut, "/api/holdings/"+created.ID, holdingRequest{
		Symbol: "bitcoin", Category: models.CategoryCrypto, Balance: 2,
		PurchaseDate: "2024-01-01", BuyPrice: 40000,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var updated models.Holding
	decodeBody(t, rec, &updated)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, 2.0, updated.Balance)

	// List
	rec = doRequest(t, s, http.MethodGet, "/api/holdings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Count int `json:"count"`
	}
	decodeBody(t, rec, &list)
	assert.Equal(t, 1, list.Count)

	// Delete
	rec = doRequest(t, s, http.MethodDelete, "/api/holdings/"+created.ID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/holdings/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHoldingCreateValidation(t *testing.T) {
	s := newTestServer(t, &stubHistory{})

	cases := []struct {
		name string
		req  holdingRequest
	}{
		{"missing symbol", holdingRequest{Category: models.CategoryCrypto, Balance: 1}},
		{"bad category", holdingRequest{Symbol: "bitcoin", Category: "bonds", Balance: 1}},
		{"negative balance", holdingRequest{Symbol: "bitcoin", Category: models.CategoryCrypto, Balance: -1}},
		{"bad purchase date", holdingRequest{Symbol: "bitcoin", Category: models.CategoryCrypto, Balance: 1, PurchaseDate: "01/01/2024"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, s, http.MethodPost, "/api/holdings", tc.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHoldingCreateFuturePurchaseDate(t *testing.T) {
	s := newTestServer(t, &stubHistory{})

	rec := doRequest(t, s, http.MethodPost, "/api/holdings", holdingRequest{
		Symbol: "bitcoin", Category: models.CategoryCrypto, Balance: 1,
		PurchaseDate: "2099-01-01", BuyPrice: 40000,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPortfolioHistoryEndpoint(t *testing.T) {
	hist := &stubHistory{points: []models.PortfolioHistoryPoint{
		{Timestamp: 1704067200000, Date: "2024-01-01", Total: 40000},
		{Timestamp: 1706745600000, Date: "2024-02-01", Total: 50000},
	}}
	s := newTestServer(t, hist)

	rec := doRequest(t, s, http.MethodGet, "/api/portfolio/history?days=30", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Period string                         `json:"period"`
		Points []models.PortfolioHistoryPoint `json:"points"`
		Count  int                            `json:"count"`
	}
	decodeBody(t, rec, &body)
	assert.Equal(t, models.Token1m, body.Period)
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, 40000.0, body.Points[0].Total)
}

func TestPortfolioHistoryInvalidDays(t *testing.T) {
	s := newTestServer(t, &stubHistory{})

	for _, q := range []string{"days=abc", "days=-5"} {
		rec := doRequest(t, s, http.MethodGet, "/api/portfolio/history?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestPortfolioHistoryFuturePurchase(t *testing.T) {
	s := newTestServer(t, &stubHistory{err: models.ErrFuturePurchaseDate})

	rec := doRequest(t, s, http.MethodGet, "/api/portfolio/history", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPerformanceEndpoint(t *testing.T) {
	hist := &stubHistory{summary: &models.PerformanceSummary{
		Oldest: 40000, Newest: 50000, Change: 10000, ChangePct: 25,
		DataPoints: 24, Accuracy: models.AccuracyAccurate,
	}}
	s := newTestServer(t, hist)

	rec := doRequest(t, s, http.MethodGet, "/api/portfolio/performance?days=30", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary models.PerformanceSummary
	decodeBody(t, rec, &summary)
	assert.Equal(t, models.AccuracyAccurate, summary.Accuracy)
	assert.Equal(t, 25.0, summary.ChangePct)
}

func TestPerformanceNoData(t *testing.T) {
	s := newTestServer(t, &stubHistory{})

	rec := doRequest(t, s, http.MethodGet, "/api/portfolio/performance", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPerformanceChartEndpoint(t *testing.T) {
	hist := &stubHistory{summary: &models.PerformanceSummary{
		Oldest: 40000, Newest: 50000, Change: 10000,
		DataPoints: 2, Accuracy: models.AccuracyAccurate,
		Series: []models.PortfolioHistoryPoint{
			{Timestamp: 1704067200000, Date: "2024-01-01", Total: 40000},
			{Timestamp: 1706745600000, Date: "2024-02-01", Total: 50000},
		},
	}}
	s := newTestServer(t, hist)

	rec := doRequest(t, s, http.MethodGet, "/api/portfolio/performance/chart.png?days=30", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Body.Bytes())
}

func TestSnapshotRecordAndList(t *testing.T) {
	hist := &stubHistory{summary: &models.PerformanceSummary{
		Newest: 1234.5, Accuracy: models.AccuracyAccurate, DataPoints: 2,
	}}
	s := newTestServer(t, hist)

	// Recording needs at least one holding.
	rec := doRequest(t, s, http.MethodPost, "/api/snapshots", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/api/holdings", holdingRequest{
		Symbol: "bitcoin", Category: models.CategoryCrypto, Balance: 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/api/snapshots", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var snap models.DailySnapshot
	decodeBody(t, rec, &snap)
	assert.Equal(t, 1234.5, snap.TotalValue)

	rec = doRequest(t, s, http.MethodGet, "/api/snapshots", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Count int `json:"count"`
	}
	decodeBody(t, rec, &list)
	assert.Equal(t, 1, list.Count)
}

func TestSnapshotRecordRejectsRecordedTier(t *testing.T) {
	hist := &stubHistory{summary: &models.PerformanceSummary{
		Newest: 1234.5, Accuracy: models.AccuracyRecorded, DataPoints: 2,
	}}
	s := newTestServer(t, hist)

	rec := doRequest(t, s, http.MethodPost, "/api/holdings", holdingRequest{
		Symbol: "bitcoin", Category: models.CategoryCrypto, Balance: 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// A recorded-tier value is the snapshot store's own output and must
	// not be written back as a fresh snapshot.
	rec = doRequest(t, s, http.MethodPost, "/api/snapshots", nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/snapshots", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Count int `json:"count"`
	}
	decodeBody(t, rec, &list)
	assert.Equal(t, 0, list.Count)
}

func TestCacheClearEndpoint(t *testing.T) {
	s := newTestServer(t, &stubHistory{})

	rec := doRequest(t, s, http.MethodPost, "/api/admin/cache/clear", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/admin/cache/clear", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, &stubHistory{})

	rec := doRequest(t, s, http.MethodOptions, "/api/holdings", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
