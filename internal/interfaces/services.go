package interfaces

import (
	"context"
	"time"

	"github.com/quiverhq/quiver/internal/models"
)

// FetchOptions configures an acquisition run.
type FetchOptions struct {
	Persist     bool   // upsert rows and advance the watermark
	Incremental bool   // start from watermark+1 day when a watermark exists
	AllowEmpty  bool   // empty provider responses are valid results
	Period      string // provider-native period for full fetches ("max" default)
}

// ReadOptions configures the read-path history lookup.
type ReadOptions struct {
	Portfolio string // cooldown/persistence scope; empty = cross-portfolio read only
	AssetID   string
	From      time.Time
	To        time.Time
	OnDemand  bool // fetch from providers on a cache miss (cooldown-gated)
}

// PriceAtDateOptions bounds the backward search for a price at a date.
type PriceAtDateOptions struct {
	MaxLookbackDays int // 0 = exact date only
}

// PriceHistoryService is the acquisition pipeline and its read API.
type PriceHistoryService interface {
	// AcquireAssetHistory runs the full pipeline for one asset: watermark,
	// adapter chain, fallback resolver, persistence, result.
	AcquireAssetHistory(ctx context.Context, portfolio string, asset models.AssetRef, opts FetchOptions) (*models.FetchResult, error)

	// FetchPortfolioPriceHistory fans AcquireAssetHistory out over the
	// throttle with per-asset failure isolation.
	FetchPortfolioPriceHistory(ctx context.Context, portfolio string, assets []models.AssetRef, opts FetchOptions) (*models.BatchResult, error)

	// FetchPriceHistory returns the stored series for a ticker, optionally
	// triggering a cooldown-gated on-demand acquisition on a cache miss.
	FetchPriceHistory(ctx context.Context, ticker string, market models.Market, opts ReadOptions) ([]models.PriceRow, error)

	// GetPriceAtDate returns the row for the exact date, or the most recent
	// earlier row within MaxLookbackDays. (nil, nil) when nothing matches.
	GetPriceAtDate(ctx context.Context, ticker string, date time.Time, opts PriceAtDateOptions) (*models.PriceRow, error)
}

// AverageCostOptions configures a cost-basis computation.
type AverageCostOptions struct {
	Method           models.CostMethod
	ExpectedQuantity *float64 // externally reported quantity for the split heuristic
	SplitWindowDays  int      // near-duplicate split suppression window
}

// PortfolioMetricsOptions configures portfolio-wide metric aggregation.
type PortfolioMetricsOptions struct {
	Method          models.CostMethod
	Period          string // return window, e.g. "1y", "6mo"
	BenchmarkTicker string // empty disables alpha
}

// ChartOptions configures chart series generation.
type ChartOptions struct {
	Method models.CostMethod
}

// MetricsService derives cost-basis, return, and chart series data.
type MetricsService interface {
	GetAverageCost(ctx context.Context, ticker, userID string, opts AverageCostOptions) (*models.AverageCostResult, error)
	GetPortfolioMetrics(ctx context.Context, userID string, opts PortfolioMetricsOptions) (*models.PortfolioMetrics, error)
	GetChartData(ctx context.Context, ticker, userID string, chartType models.ChartType, period string, opts ChartOptions) (*models.ChartSeries, error)
}
