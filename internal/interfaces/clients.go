// Package interfaces defines service contracts for Quiver
package interfaces

import (
	"context"
	"time"

	"github.com/quiverhq/quiver/internal/models"
)

// HistoryParams carries the options for a provider history fetch.
// StartDate set means "rows from that date forward"; when zero, Period is
// requested instead (default "max"). AllowEmpty makes an empty row set a
// valid non-error result instead of a DataIncompleteError.
type HistoryParams struct {
	StartDate  time.Time
	Period     string
	AllowEmpty bool
}

// HistoryOption configures a history fetch.
type HistoryOption func(*HistoryParams)

// WithStartDate requests only rows from the given date forward.
func WithStartDate(d time.Time) HistoryOption {
	return func(p *HistoryParams) { p.StartDate = d }
}

// WithPeriod requests a provider-native period window (e.g. "max", "5y").
func WithPeriod(period string) HistoryOption {
	return func(p *HistoryParams) { p.Period = period }
}

// WithAllowEmpty makes an empty response a valid result.
func WithAllowEmpty() HistoryOption {
	return func(p *HistoryParams) { p.AllowEmpty = true }
}

// HistoryProvider is the shared contract of all provider adapters.
// Implementations must fail with models.ProviderUnavailableError on
// transport/HTTP failure and models.DataIncompleteError when the response
// parses but yields no usable rows (unless AllowEmpty is set). Rows are
// deduplicated by date and sorted ascending before return.
type HistoryProvider interface {
	Name() string
	FetchHistory(ctx context.Context, symbol string, opts ...HistoryOption) (*models.HistoryPayload, error)
}

// MarketDataFallback returns a best-effort last-price snapshot when no
// provider yields a time series. Implementations may return (nil, nil) when
// no quote is available.
type MarketDataFallback interface {
	Fetch(ctx context.Context, query models.FallbackQuery) (*models.FallbackQuote, error)
}
