// Package brapi provides the secondary price-history adapter for B3-listed
// equities and funds, backed by the brapi.dev quote API.
package brapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/quiverhq/quiver/internal/clients/httpx"
	"github.com/quiverhq/quiver/internal/common"
	"github.com/quiverhq/quiver/internal/interfaces"
	"github.com/quiverhq/quiver/internal/models"
)

const (
	DefaultBaseURL   = "https://brapi.dev/api"
	DefaultTimeout   = 15 * time.Second
	DefaultRateLimit = 5 // requests per second

	// DataSource tags rows produced by this adapter.
	DataSource = "brapi"
)

// Client implements the HistoryProvider interface against brapi.dev.
type Client struct {
	baseURL    string
	token      string
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

// NewClient creates a new brapi client. The token may be empty for the
// public rate-limited tier.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		token:   token,
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

// Name implements HistoryProvider.
func (c *Client) Name() string { return DataSource }

type quoteResponse struct {
	Results []struct {
		Currency            string `json:"currency"`
		HistoricalDataPrice []struct {
			Date          int64   `json:"date"`
			Open          float64 `json:"open"`
			High          float64 `json:"high"`
			Low           float64 `json:"low"`
			Close         float64 `json:"close"`
			AdjustedClose float64 `json:"adjustedClose"`
			Volume        float64 `json:"volume"`
		} `json:"historicalDataPrice"`
	} `json:"results"`
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

// periodToRange maps provider-neutral periods onto brapi range values.
func periodToRange(period string) string {
	switch period {
	case "", "max":
		return "max"
	case "5y", "2y", "1y", "6mo", "3mo", "1mo":
		return period
	default:
		return "max"
	}
}

// FetchHistory retrieves daily bars for a B3 symbol. brapi has no
// start-date parameter, so incremental requests fetch the smallest range
// covering the start date and trim client-side.
func (c *Client) FetchHistory(ctx context.Context, symbol string, opts ...interfaces.HistoryOption) (*models.HistoryPayload, error) {
	params := &interfaces.HistoryParams{}
	for _, opt := range opts {
		opt(params)
	}

	values := url.Values{}
	values.Set("interval", "1d")
	values.Set("range", rangeFor(params))
	if c.token != "" {
		values.Set("token", c.token)
	}

	reqURL := fmt.Sprintf("%s/quote/%s?%s", c.baseURL, url.PathEscape(symbol), values.Encode())

	c.logger.Debug().Str("symbol", symbol).Msg("brapi quote API request")

	var resp quoteResponse
	if err := httpx.GetJSON(ctx, c.httpClient, c.limiter, reqURL, nil, &resp); err != nil {
		return nil, &models.ProviderUnavailableError{Provider: DataSource, Symbol: symbol, Err: err}
	}

	if resp.Error || len(resp.Results) == 0 {
		if params.AllowEmpty {
			return &models.HistoryPayload{DataSource: DataSource}, nil
		}
		reason := "empty results"
		if resp.Message != "" {
			reason = resp.Message
		}
		return nil, &models.DataIncompleteError{Provider: DataSource, Symbol: symbol, Reason: reason}
	}

	result := resp.Results[0]
	fetchedAt := time.Now().UTC()

	rows := make([]models.PriceRow, 0, len(result.HistoricalDataPrice))
	for _, bar := range result.HistoricalDataPrice {
		if bar.Close == 0 {
			continue
		}
		date := time.Unix(bar.Date, 0).UTC().Truncate(24 * time.Hour)
		if !params.StartDate.IsZero() && date.Before(params.StartDate.UTC().Truncate(24*time.Hour)) {
			continue
		}
		adj := bar.AdjustedClose
		if adj == 0 {
			adj = bar.Close
		}
		rows = append(rows, models.PriceRow{
			Date:          date,
			Open:          bar.Open,
			High:          bar.High,
			Low:           bar.Low,
			Close:         bar.Close,
			AdjustedClose: adj,
			Volume:        bar.Volume,
			DataSource:    DataSource,
			FetchedAt:     fetchedAt,
		})
	}

	rows = models.NormalizeRows(rows)

	if len(rows) == 0 && !params.AllowEmpty {
		return nil, &models.DataIncompleteError{Provider: DataSource, Symbol: symbol, Reason: "no usable bars in results"}
	}

	currency := result.Currency
	if currency == "" {
		currency = "BRL"
	}

	c.logger.Debug().Str("symbol", symbol).Int("rows", len(rows)).Msg("brapi quote API response")

	return &models.HistoryPayload{
		DataSource: DataSource,
		Currency:   currency,
		Rows:       rows,
	}, nil
}

// rangeFor picks the smallest brapi range covering the requested window.
func rangeFor(params *interfaces.HistoryParams) string {
	if params.StartDate.IsZero() {
		return periodToRange(params.Period)
	}
	age := time.Since(params.StartDate)
	switch {
	case age <= 30*24*time.Hour:
		return "1mo"
	case age <= 90*24*time.Hour:
		return "3mo"
	case age <= 365*24*time.Hour:
		return "1y"
	case age <= 5*365*24*time.Hour:
		return "5y"
	default:
		return "max"
	}
}

// Ensure Client implements HistoryProvider
var _ interfaces.HistoryProvider = (*Client)(nil)
