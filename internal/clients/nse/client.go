// Package nse provides a client for the NSE India quote API
package nse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/prakhar82/stock-analyzer/internal/common"
	"github.com/prakhar82/stock-analyzer/internal/interfaces"
	"github.com/prakhar82/stock-analyzer/internal/models"
)

const (
	DefaultBaseURL   = "https://www.nseindia.com/api"
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 5 // requests per second

	// NSE rejects requests without a browser-like user agent.
	userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36"
)

// flexFloat64 handles JSON values that may be a number, a numeric
// string, or "N/A". Missing values decode to 0.
type flexFloat64 float64

func (f *flexFloat64) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexFloat64(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" || s == "N/A" || s == "-" {
			*f = 0
			return nil
		}
		num, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexFloat64(num)
		return nil
	}
	*f = 0
	return nil
}

// Client implements the NSEClient interface
type Client struct {
	baseURL    string
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

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new NSE client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
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
	return fmt.Sprintf("NSE API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// get performs a rate-limited GET request
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to parse response from %s: %w", path, err)
	}

	return nil
}

// derivativeResponse mirrors the /quote-derivative payload.
type derivativeResponse struct {
	Data []struct {
		LastPrice flexFloat64 `json:"lastPrice"`
		PE        flexFloat64 `json:"pE"`
		EPS       flexFloat64 `json:"eps"`
	} `json:"data"`
}

// FetchDerivativeQuote retrieves a quote from the derivatives segment.
// An empty data array yields a zero-price quote so the caller can fall
// through to the next source.
func (c *Client) FetchDerivativeQuote(ctx context.Context, symbol string) (*models.ProviderQuote, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var resp derivativeResponse
	if err := c.get(ctx, "/quote-derivative", params, &resp); err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		c.logger.Debug().Str("symbol", symbol).Msg("Derivative quote empty")
		return &models.ProviderQuote{}, nil
	}

	first := resp.Data[0]
	return &models.ProviderQuote{
		Price:   float64(first.LastPrice),
		PERatio: float64(first.PE),
		EPS:     float64(first.EPS),
	}, nil
}

// equityResponse mirrors the /quote-equity payload.
type equityResponse struct {
	PriceInfo struct {
		LastPrice flexFloat64 `json:"lastPrice"`
	} `json:"priceInfo"`
	Metadata struct {
		PDSectorPE flexFloat64 `json:"pdSectorPe"`
		EPS        flexFloat64 `json:"eps"`
	} `json:"metadata"`
}

// FetchEquityQuote retrieves a quote from the equity segment.
func (c *Client) FetchEquityQuote(ctx context.Context, symbol string) (*models.ProviderQuote, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var resp equityResponse
	if err := c.get(ctx, "/quote-equity", params, &resp); err != nil {
		return nil, err
	}

	return &models.ProviderQuote{
		Price:   float64(resp.PriceInfo.LastPrice),
		PERatio: float64(resp.Metadata.PDSectorPE),
		EPS:     float64(resp.Metadata.EPS),
	}, nil
}

// historyResponse mirrors the /historical/cm/equity payload.
type historyResponse struct {
	Data []struct {
		Timestamp    string      `json:"CH_TIMESTAMP"`
		ClosingPrice flexFloat64 `json:"CH_CLOSING_PRICE"`
	} `json:"data"`
}

// FetchDailyHistory retrieves daily close bars for the last N years,
// sorted oldest first. Rows with unparseable dates are dropped.
func (c *Client) FetchDailyHistory(ctx context.Context, symbol string, years int) ([]models.DailyBar, error) {
	if years < 1 {
		years = 1
	}
	to := time.Now()
	from := to.AddDate(-years, 0, 0)

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("from", from.Format("02-01-2006"))
	params.Set("to", to.Format("02-01-2006"))

	var resp historyResponse
	if err := c.get(ctx, "/historical/cm/equity", params, &resp); err != nil {
		return nil, err
	}

	bars := make([]models.DailyBar, 0, len(resp.Data))
	for _, row := range resp.Data {
		d, err := time.Parse("2006-01-02", row.Timestamp)
		if err != nil {
			continue
		}
		bars = append(bars, models.DailyBar{Date: d, Close: float64(row.ClosingPrice)})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	return bars, nil
}

// Ensure Client implements NSEClient
var _ interfaces.NSEClient = (*Client)(nil)
