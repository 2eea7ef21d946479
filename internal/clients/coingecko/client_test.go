package coingecko

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/folio/internal/interfaces"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	client := NewClient(
		WithBaseURL(srv.URL),
		WithRateLimit(6000), // effectively unlimited in tests
	)
	return client, srv
}

func TestGetMarketChart(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/bitcoin/market_chart", r.URL.Path)
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currency"))
		assert.Equal(t, "30", r.URL.Query().Get("days"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"prices":[[1704067200000,42000.5],[1704153600000,43100.25]]}`))
	})
	defer srv.Close()

	points, err := client.GetMarketChart(context.Background(), "bitcoin", 30)
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.Equal(t, int64(1704067200000), points[0].Timestamp)
	assert.Equal(t, 42000.5, points[0].Price)
	assert.Equal(t, "2024-01-01", points[0].Date)
	assert.Equal(t, "2024-01-02", points[1].Date)
}

func TestGetMarketChartMaxDays(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "max", r.URL.Query().Get("days"))
		w.Write([]byte(`{"prices":[]}`))
	})
	defer srv.Close()

	points, err := client.GetMarketChart(context.Background(), "bitcoin", 0)
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestGetMarketChartSortsPoints(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"prices":[[1704153600000,2],[1704067200000,1]]}`))
	})
	defer srv.Close()

	points, err := client.GetMarketChart(context.Background(), "bitcoin", 2)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.True(t, points[0].Timestamp < points[1].Timestamp)
}

func TestGetMarketChartRateLimited(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"status":{"error_code":429}}`))
	})
	defer srv.Close()

	_, err := client.GetMarketChart(context.Background(), "bitcoin", 30)
	require.Error(t, err)
	assert.ErrorIs(t, err, interfaces.ErrRateLimited)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
}

func TestGetMarketChartServerError(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer srv.Close()

	_, err := client.GetMarketChart(context.Background(), "bitcoin", 30)
	require.Error(t, err)
	assert.NotErrorIs(t, err, interfaces.ErrRateLimited)
}

func TestGetSpotPrice(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "bitcoin", r.URL.Query().Get("ids"))
		w.Write([]byte(`{"bitcoin":{"usd":50000}}`))
	})
	defer srv.Close()

	price, err := client.GetSpotPrice(context.Background(), "bitcoin")
	require.NoError(t, err)
	assert.Equal(t, 50000.0, price)
}

func TestGetSpotPriceMissingID(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	defer srv.Close()

	_, err := client.GetSpotPrice(context.Background(), "nonsense")
	require.Error(t, err)
}

func TestGetContextCancelled(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"prices":[]}`))
	})
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.GetMarketChart(ctx, "bitcoin", 30)
	require.Error(t, err)
}
