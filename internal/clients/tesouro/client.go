// Package tesouro provides the fixed-income price-history adapter, backed by
// the Tesouro Direto daily price CSV. The treasury publishes the full history
// as a single semicolon-separated file mirrored at a handful of URLs; the
// adapter tries each configured URL in order and takes the first that yields
// rows for the requested title.
package tesouro

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/quiverhq/quiver/internal/clients/httpx"
	"github.com/quiverhq/quiver/internal/common"
	"github.com/quiverhq/quiver/internal/interfaces"
	"github.com/quiverhq/quiver/internal/models"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 2 // requests per second

	// DataSource tags rows produced by this adapter.
	DataSource = "tesouro_direto"

	csvDateLayout = "02/01/2006"
)

// Client implements the HistoryProvider interface over the treasury CSV.
type Client struct {
	urls       []string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// NewClient creates a new Tesouro Direto CSV client. urls are tried in
// order; an empty list is a configuration error surfaced at fetch time.
func NewClient(urls []string, opts ...ClientOption) *Client {
	c := &Client{
		urls: urls,
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

// FetchHistory retrieves the daily unit-price series for a treasury title.
// The symbol is the title name with maturity year, e.g. "Tesouro IPCA+ 2035"
// or "Tesouro Prefixado 2029". URL failures are aggregated: only when every
// configured source fails does the fetch fail.
func (c *Client) FetchHistory(ctx context.Context, symbol string, opts ...interfaces.HistoryOption) (*models.HistoryPayload, error) {
	params := &interfaces.HistoryParams{}
	for _, opt := range opts {
		opt(params)
	}

	if len(c.urls) == 0 {
		return nil, &models.ConfigurationError{
			Field:  "clients.tesouro.urls",
			Reason: "no CSV source URLs configured for the fixed-income adapter",
		}
	}

	var sourceErrs []error
	for _, srcURL := range c.urls {
		body, err := httpx.Do(ctx, c.httpClient, c.limiter, srcURL, nil)
		if err != nil {
			c.logger.Warn().Str("url", srcURL).Err(err).Msg("Tesouro CSV source failed")
			sourceErrs = append(sourceErrs, fmt.Errorf("%s: %w", srcURL, err))
			continue
		}

		rows, err := c.parse(body, symbol, params.StartDate)
		if err != nil {
			sourceErrs = append(sourceErrs, fmt.Errorf("%s: %w", srcURL, err))
			continue
		}
		if len(rows) == 0 {
			// Parsed fine but no rows for this title; try the next mirror.
			sourceErrs = append(sourceErrs, fmt.Errorf("%s: no rows for %q", srcURL, symbol))
			continue
		}

		c.logger.Debug().Str("symbol", symbol).Str("url", srcURL).Int("rows", len(rows)).Msg("Tesouro CSV parsed")

		return &models.HistoryPayload{
			DataSource: DataSource,
			Currency:   "BRL",
			Rows:       models.NormalizeRows(rows),
		}, nil
	}

	if params.AllowEmpty {
		return &models.HistoryPayload{DataSource: DataSource, Currency: "BRL"}, nil
	}
	return nil, &models.DataIncompleteError{
		Provider: DataSource,
		Symbol:   symbol,
		Reason:   fmt.Sprintf("all sources exhausted: %v", errors.Join(sourceErrs...)),
	}
}

// parse extracts the rows for one title out of the full CSV.
// Layout: Tipo Titulo;Data Vencimento;Data Base;Taxa Compra Manha;
// Taxa Venda Manha;PU Compra Manha;PU Venda Manha;PU Base Manha
// with dd/mm/yyyy dates and comma decimals.
func (c *Client) parse(body []byte, symbol string, startDate time.Time) ([]models.PriceRow, error) {
	reader := csv.NewReader(bytes.NewReader(body))
	reader.Comma = ';'
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("malformed CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, nil
	}

	want := strings.ToLower(strings.TrimSpace(symbol))
	fetchedAt := time.Now().UTC()
	var cutoff time.Time
	if !startDate.IsZero() {
		cutoff = startDate.UTC().Truncate(24 * time.Hour)
	}

	var rows []models.PriceRow
	for _, rec := range records[1:] {
		if len(rec) < 8 {
			continue
		}

		maturity, err := time.Parse(csvDateLayout, strings.TrimSpace(rec[1]))
		if err != nil {
			continue
		}
		title := fmt.Sprintf("%s %d", strings.TrimSpace(rec[0]), maturity.Year())
		if strings.ToLower(title) != want {
			continue
		}

		base, err := time.Parse(csvDateLayout, strings.TrimSpace(rec[2]))
		if err != nil {
			continue
		}
		date := base.UTC().Truncate(24 * time.Hour)
		if !cutoff.IsZero() && date.Before(cutoff) {
			continue
		}

		// PU Venda Manha is what a holder realizes; fall back to PU Base.
		unitPrice := parseDecimal(rec[6])
		if unitPrice == 0 {
			unitPrice = parseDecimal(rec[7])
		}
		if unitPrice == 0 {
			continue
		}

		rows = append(rows, models.PriceRow{
			Date:          date,
			Open:          unitPrice,
			High:          unitPrice,
			Low:           unitPrice,
			Close:         unitPrice,
			AdjustedClose: unitPrice,
			DataSource:    DataSource,
			FetchedAt:     fetchedAt,
		})
	}

	return rows, nil
}

// parseDecimal reads a Brazilian-format decimal ("1.234,56").
func parseDecimal(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// Ensure Client implements HistoryProvider
var _ interfaces.HistoryProvider = (*Client)(nil)
