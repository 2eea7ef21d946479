// Package coingecko provides a client for the CoinGecko API
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

const (
	DefaultBaseURL   = "https://api.coingecko.com/api/v3"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10 // requests per minute, free-tier budget
)

// Client implements the MarketDataClient interface
type Client struct {
	baseURL    string
	apiKey     string
	currency   string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithAPIKey sets the demo/pro API key
func WithAPIKey(apiKey string) ClientOption {
	return func(c *Client) {
		c.apiKey = apiKey
	}
}

// WithCurrency sets the quote currency (default "usd")
func WithCurrency(currency string) ClientOption {
	return func(c *Client) {
		c.currency = strings.ToLower(currency)
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the transport-level rate limit
func WithRateLimit(requestsPerMinute int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), requestsPerMinute)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new CoinGecko client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:  DefaultBaseURL,
		currency: "usd",
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Every(time.Minute/DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("CoinGecko API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Unwrap exposes ErrRateLimited for 429 responses so callers can match with
// errors.Is without depending on this package's error type.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusTooManyRequests {
		return interfaces.ErrRateLimited
	}
	return nil
}

// get performs a rate-limited GET request
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	// Wait for rate limiter
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("CoinGecko API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// marketChartResponse is the provider's /market_chart payload: arrays of
// [epoch-millis, value] pairs.
type marketChartResponse struct {
	Prices [][2]float64 `json:"prices"`
}

// GetMarketChart retrieves a raw price series for a coin id. days <= 0
// requests the maximum available history.
func (c *Client) GetMarketChart(ctx context.Context, id string, days int) ([]models.PricePoint, error) {
	params := url.Values{}
	params.Set("vs_currency", c.currency)
	if days <= 0 {
		params.Set("days", "max")
	} else {
		params.Set("days", strconv.Itoa(days))
	}

	path := fmt.Sprintf("/coins/%s/market_chart", url.PathEscape(id))

	var resp marketChartResponse
	if err := c.get(ctx, path, params, &resp); err != nil {
		return nil, err
	}

	points := make([]models.PricePoint, 0, len(resp.Prices))
	for _, pair := range resp.Prices {
		points = append(points, models.NewPricePoint(int64(pair[0]), pair[1]))
	}

	// The downsample and merge steps require ascending timestamps; the
	// provider's ordering is not part of its contract.
	sort.Slice(points, func(i, j int) bool { return points[i].Timestamp < points[j].Timestamp })

	c.logger.Debug().Str("id", id).Int("points", len(points)).Msg("CoinGecko market chart returned")

	return points, nil
}

// GetSpotPrice retrieves the current price for a coin id.
func (c *Client) GetSpotPrice(ctx context.Context, id string) (float64, error) {
	params := url.Values{}
	params.Set("ids", id)
	params.Set("vs_currencies", c.currency)

	var resp map[string]map[string]float64
	if err := c.get(ctx, "/simple/price", params, &resp); err != nil {
		return 0, err
	}

	quote, ok := resp[id]
	if !ok {
		return 0, fmt.Errorf("no price returned for id '%s'", id)
	}
	price, ok := quote[c.currency]
	if !ok {
		return 0, fmt.Errorf("no %s quote returned for id '%s'", c.currency, id)
	}

	return price, nil
}

// Ensure Client implements MarketDataClient
var _ interfaces.MarketDataClient = (*Client)(nil)
