// Package metrics derives cost-basis, valuation, and chart series data from
// the transaction ledger and the stored price history.
package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/quiverhq/quiver/internal/common"
	"github.com/quiverhq/quiver/internal/interfaces"
	"github.com/quiverhq/quiver/internal/models"
	"github.com/quiverhq/quiver/internal/services/costbasis"
)

// Service computes derived metrics over stored data. It reads only; all
// acquisition happens in the pricehistory service.
type Service struct {
	storage     interfaces.StorageManager
	logger      *common.Logger
	splitWindow int
	now         func() time.Time
}

// NewService creates a metrics service. splitWindowDays is the default
// near-duplicate split suppression window; 0 selects the built-in default.
func NewService(storage interfaces.StorageManager, logger *common.Logger, splitWindowDays int) *Service {
	return &Service{
		storage:     storage,
		logger:      logger,
		splitWindow: splitWindowDays,
		now:         time.Now,
	}
}

func resolveMethod(m models.CostMethod) models.CostMethod {
	if m == "" {
		return models.MethodWeightedAverage
	}
	return m
}

// loadSplits derives the split history for a ticker from the stored rows.
// windowDays 0 falls back to the service default.
func (s *Service) loadSplits(ctx context.Context, ticker string, windowDays int) ([]models.SplitEvent, error) {
	if windowDays <= 0 {
		windowDays = s.splitWindow
	}
	rows, err := s.storage.PriceStore().RangeByTicker(ctx, ticker, interfaces.RangeOptions{})
	if err != nil {
		return nil, err
	}
	return models.ExtractSplitEvents(rows, windowDays), nil
}

// GetAverageCost replays the user's ledger for one ticker under the selected
// cost method, resolving split ambiguity against the expected quantity when
// one is provided.
func (s *Service) GetAverageCost(ctx context.Context, ticker, userID string, opts interfaces.AverageCostOptions) (*models.AverageCostResult, error) {
	method := resolveMethod(opts.Method)

	txs, err := s.storage.LedgerStore().ListTransactions(ctx, userID, ticker)
	if err != nil {
		return nil, err
	}

	splits, err := s.loadSplits(ctx, ticker, opts.SplitWindowDays)
	if err != nil {
		return nil, err
	}

	holdings, resolution := costbasis.ResolveWithSplitHeuristic(txs, method, splits, opts.ExpectedQuantity)
	if holdings.ClampedSells > 0 {
		s.logger.Warn().
			Str("ticker", ticker).
			Str("user", userID).
			Int("clamped_sells", holdings.ClampedSells).
			Msg("ledger sells exceeded held quantity")
	}

	return &models.AverageCostResult{
		Ticker:     ticker,
		Holdings:   holdings,
		Resolution: resolution,
	}, nil
}

// GetPortfolioMetrics values every open position in the user's ledger at the
// latest stored price. Positions without any stored price are reported with
// an explicit unavailable marker instead of a zero value.
func (s *Service) GetPortfolioMetrics(ctx context.Context, userID string, opts interfaces.PortfolioMetricsOptions) (*models.PortfolioMetrics, error) {
	method := resolveMethod(opts.Method)
	prices := s.storage.PriceStore()

	tickers, err := s.storage.LedgerStore().ListTickers(ctx, userID)
	if err != nil {
		return nil, err
	}

	var benchmarkReturn *float64
	if opts.BenchmarkTicker != "" && opts.Period != "" {
		benchmarkReturn, err = s.periodReturn(ctx, opts.BenchmarkTicker, opts.Period)
		if err != nil {
			s.logger.Warn().Str("benchmark", opts.BenchmarkTicker).Err(err).Msg("benchmark return unavailable")
		}
	}

	pm := &models.PortfolioMetrics{
		UserID: userID,
		AsOf:   s.now().UTC(),
	}

	for _, ticker := range tickers {
		txs, err := s.storage.LedgerStore().ListTransactions(ctx, userID, ticker)
		if err != nil {
			return nil, err
		}
		splits, err := s.loadSplits(ctx, ticker, 0)
		if err != nil {
			return nil, err
		}

		holdings, _ := costbasis.ResolveWithSplitHeuristic(txs, method, splits, nil)
		if holdings.Quantity <= 0 {
			continue
		}

		hm := models.HoldingMetrics{
			Ticker:              ticker,
			Holdings:            holdings,
			DividendYieldOnCost: dividendYieldOnCost(txs, holdings.TotalBuysCost),
		}

		latest, err := prices.RangeByTicker(ctx, ticker, interfaces.RangeOptions{Limit: 1, Descending: true})
		if err != nil {
			return nil, err
		}
		if len(latest) == 0 {
			hm.PriceUnavailable = true
		} else {
			last := latest[0]
			price := last.Close
			date := last.Date
			value := holdings.Quantity * price
			ret := value - holdings.Cost

			hm.LastPrice = &price
			hm.LastPriceDate = &date
			hm.MarketValue = &value
			hm.UnrealizedReturn = &ret
			if holdings.Cost > 0 {
				pct := ret / holdings.Cost * 100
				hm.UnrealizedReturnPct = &pct
			}

			if opts.Period != "" {
				pr, err := s.periodReturn(ctx, ticker, opts.Period)
				if err == nil && pr != nil {
					hm.PeriodReturnPct = pr
					if benchmarkReturn != nil {
						alpha := *pr - *benchmarkReturn
						hm.BenchmarkAlphaPct = &alpha
					}
				}
			}
		}

		pm.Holdings = append(pm.Holdings, hm)
		pm.TotalCost += holdings.Cost
		if hm.MarketValue != nil {
			pm.TotalValue += *hm.MarketValue
		} else {
			// Unpriced positions are carried at cost in the aggregate.
			pm.TotalValue += holdings.Cost
		}
	}

	pm.TotalReturn = pm.TotalValue - pm.TotalCost
	return pm, nil
}

// periodReturn is the close-to-close percentage change over the period
// window, nil when fewer than two rows fall inside it.
func (s *Service) periodReturn(ctx context.Context, ticker, period string) (*float64, error) {
	start, err := periodStart(s.now().UTC(), period)
	if err != nil {
		return nil, err
	}
	rows, err := s.storage.PriceStore().RangeByTicker(ctx, ticker, interfaces.RangeOptions{From: start})
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 || rows[0].Close == 0 {
		return nil, nil
	}
	pct := (rows[len(rows)-1].Close/rows[0].Close - 1) * 100
	return &pct, nil
}

// periodStart maps a period string to its window start. "max" and the empty
// string mean the whole history.
func periodStart(now time.Time, period string) (time.Time, error) {
	switch strings.ToLower(strings.TrimSpace(period)) {
	case "", "max":
		return time.Time{}, nil
	case "1mo":
		return now.AddDate(0, -1, 0), nil
	case "3mo":
		return now.AddDate(0, -3, 0), nil
	case "6mo":
		return now.AddDate(0, -6, 0), nil
	case "1y":
		return now.AddDate(-1, 0, 0), nil
	case "2y":
		return now.AddDate(-2, 0, 0), nil
	case "5y":
		return now.AddDate(-5, 0, 0), nil
	case "ytd":
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC), nil
	default:
		return time.Time{}, &models.ConfigurationError{Field: "period", Reason: fmt.Sprintf("unrecognized period %q", period)}
	}
}

// dividendYieldOnCost is total cash distributions over total acquisition
// cost, in percent. Zero when nothing was bought.
func dividendYieldOnCost(txs []models.Transaction, totalBuysCost float64) float64 {
	if totalBuysCost <= 0 {
		return 0
	}
	var income float64
	for i := range txs {
		if txs[i].Type.IsIncome() {
			income += txs[i].EffectiveAmount()
		}
	}
	return income / totalBuysCost * 100
}

// GetChartData builds a derived series for one ticker over a period.
func (s *Service) GetChartData(ctx context.Context, ticker, userID string, chartType models.ChartType, period string, opts interfaces.ChartOptions) (*models.ChartSeries, error) {
	start, err := periodStart(s.now().UTC(), period)
	if err != nil {
		return nil, err
	}

	series := &models.ChartSeries{
		Ticker: ticker,
		Type:   chartType,
		Period: period,
	}

	switch chartType {
	case models.ChartAverageCost:
		points, err := s.averageCostSeries(ctx, ticker, userID, resolveMethod(opts.Method), start)
		if err != nil {
			return nil, err
		}
		series.Points = points

	case models.ChartCumulativeReturn:
		rows, err := s.storage.PriceStore().RangeByTicker(ctx, ticker, interfaces.RangeOptions{From: start})
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 && rows[0].Close != 0 {
			base := rows[0].Close
			for _, r := range rows {
				series.Points = append(series.Points, models.ChartPoint{
					Date:  r.Date,
					Value: (r.Close/base - 1) * 100,
				})
			}
		}

	default:
		return nil, &models.ConfigurationError{Field: "chart_type", Reason: fmt.Sprintf("unrecognized chart type %q", chartType)}
	}

	return series, nil
}

// averageCostSeries replays the ledger one transaction at a time and emits
// the running average cost after each event. Ledgers are small enough that
// recomputing each prefix beats maintaining incremental engine state.
func (s *Service) averageCostSeries(ctx context.Context, ticker, userID string, method models.CostMethod, start time.Time) ([]models.ChartPoint, error) {
	txs, err := s.storage.LedgerStore().ListTransactions(ctx, userID, ticker)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, nil
	}

	splits, err := s.loadSplits(ctx, ticker, 0)
	if err != nil {
		return nil, err
	}

	models.SortTransactions(txs)

	var points []models.ChartPoint
	for i := range txs {
		upTo := txs[i].Date
		var applicable []models.SplitEvent
		for _, ev := range splits {
			if !ev.Date.After(upTo) {
				applicable = append(applicable, ev)
			}
		}
		h := costbasis.Calculate(txs[:i+1], method, applicable)
		if !start.IsZero() && upTo.Before(start) {
			continue
		}
		points = append(points, models.ChartPoint{Date: upTo, Value: h.AverageCost})
	}
	return points, nil
}

// Ensure Service implements MetricsService
var _ interfaces.MetricsService = (*Service)(nil)
