// Package yahoo provides the primary daily price-history adapter, backed by
// the Yahoo Finance v8 chart API.
package yahoo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/quiverhq/quiver/internal/clients/httpx"
	"github.com/quiverhq/quiver/internal/common"
	"github.com/quiverhq/quiver/internal/interfaces"
	"github.com/quiverhq/quiver/internal/models"
)

const (
	DefaultBaseURL   = "https://query1.finance.yahoo.com"
	DefaultTimeout   = 15 * time.Second
	DefaultRateLimit = 5 // requests per second

	// DataSource tags rows produced by this adapter.
	DataSource = "yahoo"
)

// Client implements the HistoryProvider interface against Yahoo Finance.
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

// NewClient creates a new Yahoo Finance client. No API key is required.
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

// Name implements HistoryProvider.
func (c *Client) Name() string { return DataSource }

// chartResponse mirrors the subset of the v8 chart payload we consume.
// Price arrays carry nulls for non-trading entries, hence pointer slices.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency string `json:"currency"`
			} `json:"meta"`
			Timestamp []int64 `json:"timestamp"`
			Events    struct {
				Splits map[string]struct {
					Date        int64   `json:"date"`
					Numerator   float64 `json:"numerator"`
					Denominator float64 `json:"denominator"`
				} `json:"splits"`
				Dividends map[string]struct {
					Date   int64   `json:"date"`
					Amount float64 `json:"amount"`
				} `json:"dividends"`
			} `json:"events"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchHistory retrieves daily bars, dividends, and split factors for a
// symbol. StartDate bounds the window from below; otherwise the requested
// period is fetched in full (default "max").
func (c *Client) FetchHistory(ctx context.Context, symbol string, opts ...interfaces.HistoryOption) (*models.HistoryPayload, error) {
	params := &interfaces.HistoryParams{}
	for _, opt := range opts {
		opt(params)
	}

	values := url.Values{}
	values.Set("interval", "1d")
	values.Set("events", "div|split")
	values.Set("includeAdjustedClose", "true")
	if !params.StartDate.IsZero() {
		values.Set("period1", strconv.FormatInt(params.StartDate.UTC().Unix(), 10))
		values.Set("period2", strconv.FormatInt(time.Now().UTC().Unix(), 10))
	} else {
		period := params.Period
		if period == "" {
			period = "max"
		}
		values.Set("range", period)
	}

	reqURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), values.Encode())

	c.logger.Debug().Str("symbol", symbol).Msg("Yahoo chart API request")

	header := http.Header{}
	header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	header.Set("Accept", "application/json")

	var resp chartResponse
	if err := httpx.GetJSON(ctx, c.httpClient, c.limiter, reqURL, header, &resp); err != nil {
		return nil, &models.ProviderUnavailableError{Provider: DataSource, Symbol: symbol, Err: err}
	}

	if resp.Chart.Error != nil || len(resp.Chart.Result) == 0 {
		if params.AllowEmpty {
			return &models.HistoryPayload{DataSource: DataSource}, nil
		}
		reason := "empty chart result"
		if resp.Chart.Error != nil {
			reason = resp.Chart.Error.Description
		}
		return nil, &models.DataIncompleteError{Provider: DataSource, Symbol: symbol, Reason: reason}
	}

	result := resp.Chart.Result[0]
	fetchedAt := time.Now().UTC()

	dividends := make(map[string]float64, len(result.Events.Dividends))
	for _, d := range result.Events.Dividends {
		dividends[unixDateKey(d.Date)] = d.Amount
	}
	splits := make(map[string]float64, len(result.Events.Splits))
	for _, s := range result.Events.Splits {
		if s.Denominator > 0 {
			splits[unixDateKey(s.Date)] = s.Numerator / s.Denominator
		}
	}

	var quote struct {
		Open, High, Low, Close, Volume []*float64
	}
	if len(result.Indicators.Quote) > 0 {
		q := result.Indicators.Quote[0]
		quote.Open, quote.High, quote.Low, quote.Close, quote.Volume = q.Open, q.High, q.Low, q.Close, q.Volume
	}
	var adjClose []*float64
	if len(result.Indicators.AdjClose) > 0 {
		adjClose = result.Indicators.AdjClose[0].AdjClose
	}

	rows := make([]models.PriceRow, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		closePrice := at(quote.Close, i)
		if closePrice == nil {
			continue // non-trading entry
		}
		date := time.Unix(ts, 0).UTC().Truncate(24 * time.Hour)
		key := date.Format(models.DateLayout)

		row := models.PriceRow{
			Date:          date,
			Open:          deref(at(quote.Open, i)),
			High:          deref(at(quote.High, i)),
			Low:           deref(at(quote.Low, i)),
			Close:         *closePrice,
			AdjustedClose: *closePrice,
			Volume:        deref(at(quote.Volume, i)),
			Dividends:     dividends[key],
			SplitFactor:   splits[key],
			DataSource:    DataSource,
			FetchedAt:     fetchedAt,
		}
		if adj := at(adjClose, i); adj != nil {
			row.AdjustedClose = *adj
		}
		rows = append(rows, row)
	}

	rows = models.NormalizeRows(rows)

	if len(rows) == 0 && !params.AllowEmpty {
		return nil, &models.DataIncompleteError{Provider: DataSource, Symbol: symbol, Reason: "no usable rows in chart result"}
	}

	c.logger.Debug().Str("symbol", symbol).Int("rows", len(rows)).Msg("Yahoo chart API response")

	return &models.HistoryPayload{
		DataSource: DataSource,
		Currency:   result.Meta.Currency,
		Rows:       rows,
	}, nil
}

func unixDateKey(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(models.DateLayout)
}

func at(vals []*float64, i int) *float64 {
	if i < len(vals) {
		return vals[i]
	}
	return nil
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// Ensure Client implements HistoryProvider
var _ interfaces.HistoryProvider = (*Client)(nil)
