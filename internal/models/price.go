// Package models defines data structures for Quiver
package models

import (
	"sort"
	"time"
)

// DateLayout is the ISO calendar date format used as the store sort key.
const DateLayout = "2006-01-02"

// Market classifies an asset for adapter-chain selection.
type Market string

const (
	MarketStocks      Market = "stocks"
	MarketFunds       Market = "funds"
	MarketFixedIncome Market = "fixed_income"
)

// IsFixedIncome reports whether the market routes to the CSV adapter.
func (m Market) IsFixedIncome() bool { return m == MarketFixedIncome }

// PriceRow is one calendar date of daily OHLCV history for one asset.
// At most one row exists per (asset, date); re-fetching the same date
// overwrites it idempotently.
type PriceRow struct {
	Date          time.Time `json:"date"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Close         float64   `json:"close"`
	AdjustedClose float64   `json:"adjusted_close"`
	Volume        float64   `json:"volume"`
	Dividends     float64   `json:"dividends"`
	SplitFactor   float64   `json:"split_factor"`
	DataSource    string    `json:"data_source"`
	IsScraped     bool      `json:"is_scraped"`
	FetchedAt     time.Time `json:"fetched_at"`
}

// DateKey returns the row's ISO calendar date, the store sort key.
func (r *PriceRow) DateKey() string {
	return r.Date.UTC().Format(DateLayout)
}

// HistoryPayload is the normalized result of one provider fetch.
type HistoryPayload struct {
	DataSource string
	IsScraped  bool
	Currency   string
	Rows       []PriceRow
}

// NormalizeRows deduplicates rows by calendar date (last occurrence wins)
// and sorts them ascending. Adapters must call this before returning.
func NormalizeRows(rows []PriceRow) []PriceRow {
	if len(rows) == 0 {
		return rows
	}
	byDate := make(map[string]PriceRow, len(rows))
	for _, r := range rows {
		byDate[r.DateKey()] = r
	}
	out := make([]PriceRow, 0, len(byDate))
	for _, r := range byDate {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Watermark records the latest durably stored date for an asset, the source
// that produced it, and when it was fetched. It drives the next incremental
// fetch window (watermark + 1 day).
type Watermark struct {
	LatestDate time.Time `json:"latest_date"`
	DataSource string    `json:"data_source"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// FetchResult summarizes one per-asset acquisition run.
type FetchResult struct {
	RunID                     string     `json:"run_id"`
	Ticker                    string     `json:"ticker"`
	Market                    Market     `json:"market"`
	Currency                  string     `json:"currency,omitempty"`
	DataSource                string     `json:"data_source,omitempty"`
	IsScraped                 bool       `json:"is_scraped"`
	FetchedAt                 time.Time  `json:"fetched_at"`
	LatestStoredDateBeforeRun *time.Time `json:"latest_stored_date_before_run,omitempty"`
	RowsFetched               int        `json:"rows_fetched"`
	RowsPersisted             int        `json:"rows_persisted"`
	Rows                      []PriceRow `json:"rows,omitempty"`
}

// AssetStatus is the per-asset outcome within a portfolio-wide run.
type AssetStatus string

const (
	AssetStatusUpdated AssetStatus = "updated"
	AssetStatusFailed  AssetStatus = "failed"
)

// AssetResult is one entry in a portfolio-wide batch result.
type AssetResult struct {
	Ticker  string       `json:"ticker"`
	Status  AssetStatus  `json:"status"`
	Message string       `json:"message,omitempty"`
	Result  *FetchResult `json:"result,omitempty"`
}

// BatchResult aggregates a portfolio-wide acquisition run. Failures are
// isolated per asset and never abort sibling assets.
type BatchResult struct {
	Portfolio string        `json:"portfolio"`
	Updated   int           `json:"updated"`
	Failed    int           `json:"failed"`
	Assets    []AssetResult `json:"assets"`
}

// AssetRef identifies one portfolio asset for acquisition.
type AssetRef struct {
	AssetID    string `json:"asset_id"`
	Ticker     string `json:"ticker"`
	Market     Market `json:"market"`
	AssetClass string `json:"asset_class,omitempty"`
	Country    string `json:"country,omitempty"`
}

// FallbackQuery identifies an asset for the market-data fallback collaborator.
type FallbackQuery struct {
	Ticker     string
	Market     Market
	AssetClass string
	Country    string
}

// FallbackQuote is a best-effort last-price snapshot returned by the
// market-data fallback collaborator when no time series exists.
type FallbackQuote struct {
	DataSource   string
	IsScraped    bool
	CurrentPrice *float64
	Currency     string
}
