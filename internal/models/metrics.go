package models

import "time"

// AverageCostResult is a holdings computation together with the split
// heuristic branch that produced it.
type AverageCostResult struct {
	Ticker     string          `json:"ticker"`
	Holdings   Holdings        `json:"holdings"`
	Resolution SplitResolution `json:"resolution"`
}

// ChartType selects which derived series GetChartData builds.
type ChartType string

const (
	ChartAverageCost      ChartType = "average_cost"
	ChartCumulativeReturn ChartType = "cumulative_return"
)

// ChartPoint is one date of a derived chart series.
type ChartPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// ChartSeries is a derived per-asset chart series over a period.
type ChartSeries struct {
	Ticker string       `json:"ticker"`
	Type   ChartType    `json:"type"`
	Period string       `json:"period"`
	Points []ChartPoint `json:"points"`
}

// HoldingMetrics is the derived per-asset view within portfolio metrics.
// MarketValue is nil when no price row exists for the asset, an explicit
// unavailable state rather than a zero that looks like a real value.
type HoldingMetrics struct {
	Ticker              string     `json:"ticker"`
	Holdings            Holdings   `json:"holdings"`
	LastPrice           *float64   `json:"last_price,omitempty"`
	LastPriceDate       *time.Time `json:"last_price_date,omitempty"`
	MarketValue         *float64   `json:"market_value,omitempty"`
	UnrealizedReturn    *float64   `json:"unrealized_return,omitempty"`
	UnrealizedReturnPct *float64   `json:"unrealized_return_pct,omitempty"`
	PeriodReturnPct     *float64   `json:"period_return_pct,omitempty"`
	BenchmarkAlphaPct   *float64   `json:"benchmark_alpha_pct,omitempty"`
	DividendYieldOnCost float64    `json:"dividend_yield_on_cost"`
	PriceUnavailable    bool       `json:"price_unavailable,omitempty"`
}

// PortfolioMetrics aggregates holding metrics for one user.
type PortfolioMetrics struct {
	UserID      string           `json:"user_id"`
	AsOf        time.Time        `json:"as_of"`
	Holdings    []HoldingMetrics `json:"holdings"`
	TotalCost   float64          `json:"total_cost"`
	TotalValue  float64          `json:"total_value"`
	TotalReturn float64          `json:"total_return"`
}
