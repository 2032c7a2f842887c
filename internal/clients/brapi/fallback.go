package brapi

import (
	"context"
	"fmt"
	"net/url"

	"github.com/quiverhq/quiver/internal/clients/httpx"
	"github.com/quiverhq/quiver/internal/interfaces"
	"github.com/quiverhq/quiver/internal/models"
)

type lastQuoteResponse struct {
	Results []struct {
		Currency           string   `json:"currency"`
		RegularMarketPrice *float64 `json:"regularMarketPrice"`
	} `json:"results"`
	Error bool `json:"error"`
}

// FallbackResolver serves last-price snapshots off the quote endpoint when
// no provider in the chain yields a time series. Misses are not errors: an
// unknown symbol resolves to (nil, nil).
type FallbackResolver struct {
	client *Client
}

// NewFallbackResolver wraps a brapi client as a fallback quote source.
func NewFallbackResolver(client *Client) *FallbackResolver {
	return &FallbackResolver{client: client}
}

// Fetch implements MarketDataFallback.
func (f *FallbackResolver) Fetch(ctx context.Context, query models.FallbackQuery) (*models.FallbackQuote, error) {
	c := f.client

	values := url.Values{}
	if c.token != "" {
		values.Set("token", c.token)
	}
	reqURL := fmt.Sprintf("%s/quote/%s?%s", c.baseURL, url.PathEscape(query.Ticker), values.Encode())

	var resp lastQuoteResponse
	if err := httpx.GetJSON(ctx, c.httpClient, c.limiter, reqURL, nil, &resp); err != nil {
		return nil, &models.ProviderUnavailableError{Provider: DataSource, Symbol: query.Ticker, Err: err}
	}
	if resp.Error || len(resp.Results) == 0 || resp.Results[0].RegularMarketPrice == nil {
		return nil, nil
	}

	result := resp.Results[0]
	currency := result.Currency
	if currency == "" {
		currency = "BRL"
	}

	c.logger.Debug().Str("symbol", query.Ticker).Msg("fallback quote resolved")

	return &models.FallbackQuote{
		DataSource:   DataSource,
		CurrentPrice: result.RegularMarketPrice,
		Currency:     currency,
	}, nil
}

// Ensure FallbackResolver implements MarketDataFallback
var _ interfaces.MarketDataFallback = (*FallbackResolver)(nil)
