// Package pricehistory implements the daily price acquisition pipeline:
// incremental windowing off the stored watermark, the provider adapter
// chain, the fallback quote resolver, and idempotent persistence.
package pricehistory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quiverhq/quiver/internal/common"
	"github.com/quiverhq/quiver/internal/interfaces"
	"github.com/quiverhq/quiver/internal/models"
	"github.com/quiverhq/quiver/internal/throttle"
)

const defaultPeriod = "max"

// Service runs acquisitions and serves the stored history.
type Service struct {
	storage     interfaces.StorageManager
	equityChain *Chain
	fixedChain  *Chain
	fallback    interfaces.MarketDataFallback
	throttle    *throttle.Throttle
	cooldown    *throttle.CooldownCache
	logger      *common.Logger
	now         func() time.Time
}

// NewService wires the acquisition pipeline. fallback may be nil when no
// quote resolver is available.
func NewService(
	storage interfaces.StorageManager,
	equityChain *Chain,
	fixedChain *Chain,
	fallback interfaces.MarketDataFallback,
	thr *throttle.Throttle,
	cooldown *throttle.CooldownCache,
	logger *common.Logger,
) *Service {
	return &Service{
		storage:     storage,
		equityChain: equityChain,
		fixedChain:  fixedChain,
		fallback:    fallback,
		throttle:    thr,
		cooldown:    cooldown,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *Service) chainFor(market models.Market) *Chain {
	if market.IsFixedIncome() {
		return s.fixedChain
	}
	return s.equityChain
}

// AcquireAssetHistory runs the full pipeline for one asset. With
// Incremental set, the fetch window starts the day after the stored
// watermark; otherwise the provider-native period (default "max") is
// requested. With Persist set, rows are upserted and the watermark advances
// to the latest written date.
func (s *Service) AcquireAssetHistory(ctx context.Context, portfolio string, asset models.AssetRef, opts interfaces.FetchOptions) (*models.FetchResult, error) {
	prices := s.storage.PriceStore()

	var watermark *models.Watermark
	if opts.Incremental {
		wm, err := prices.GetWatermark(ctx, portfolio, asset.AssetID)
		if err != nil {
			return nil, err
		}
		watermark = wm
	}

	histOpts := []interfaces.HistoryOption{}
	if watermark != nil {
		histOpts = append(histOpts, interfaces.WithStartDate(watermark.LatestDate.AddDate(0, 0, 1)))
	} else {
		period := opts.Period
		if period == "" {
			period = defaultPeriod
		}
		histOpts = append(histOpts, interfaces.WithPeriod(period))
	}
	if opts.AllowEmpty {
		histOpts = append(histOpts, interfaces.WithAllowEmpty())
	}

	payload, fetchErr := s.chainFor(asset.Market).Fetch(ctx, asset.Ticker, histOpts...)
	if fetchErr != nil {
		s.logger.Warn().Str("ticker", asset.Ticker).Err(fetchErr).Msg("provider chain failed")
	}

	// A caller that allows an empty result accepts "nothing new" as an
	// answer; only consult the fallback when empty would otherwise be an
	// error.
	if (payload == nil || len(payload.Rows) == 0) && !opts.AllowEmpty {
		synthesized, err := s.resolveFallback(ctx, asset)
		if err != nil {
			s.logger.Warn().Str("ticker", asset.Ticker).Err(err).Msg("fallback resolver failed")
		}
		if synthesized != nil {
			payload = synthesized
			fetchErr = nil
		}
	}

	if payload == nil || len(payload.Rows) == 0 {
		if fetchErr != nil {
			s.markFailure(portfolio, asset.AssetID)
			return nil, fetchErr
		}
		// Empty but valid: report a no-op run.
		return s.buildResult(asset, watermark, payload, 0), nil
	}

	persisted := 0
	if opts.Persist {
		n, err := s.persist(ctx, portfolio, asset, payload)
		if err != nil {
			s.markFailure(portfolio, asset.AssetID)
			return nil, err
		}
		persisted = n
	}

	s.clearFailure(portfolio, asset.AssetID)
	return s.buildResult(asset, watermark, payload, persisted), nil
}

// resolveFallback asks the fallback collaborator for a last-price snapshot
// and synthesizes a single row dated today from it.
func (s *Service) resolveFallback(ctx context.Context, asset models.AssetRef) (*models.HistoryPayload, error) {
	if s.fallback == nil {
		return nil, nil
	}
	quote, err := s.fallback.Fetch(ctx, models.FallbackQuery{
		Ticker:     asset.Ticker,
		Market:     asset.Market,
		AssetClass: asset.AssetClass,
		Country:    asset.Country,
	})
	if err != nil {
		return nil, err
	}
	if quote == nil || quote.CurrentPrice == nil {
		return nil, nil
	}

	price := *quote.CurrentPrice
	now := s.now().UTC()
	row := models.PriceRow{
		Date:          now.Truncate(24 * time.Hour),
		Open:          price,
		High:          price,
		Low:           price,
		Close:         price,
		AdjustedClose: price,
		DataSource:    quote.DataSource,
		IsScraped:     quote.IsScraped,
		FetchedAt:     now,
	}
	return &models.HistoryPayload{
		DataSource: quote.DataSource,
		IsScraped:  quote.IsScraped,
		Currency:   quote.Currency,
		Rows:       []models.PriceRow{row},
	}, nil
}

// persist upserts the rows in date order and advances the watermark to the
// last written date. The watermark is written after the rows, so a crash
// mid-batch re-fetches an already-stored window on the next run.
func (s *Service) persist(ctx context.Context, portfolio string, asset models.AssetRef, payload *models.HistoryPayload) (int, error) {
	prices := s.storage.PriceStore()

	persisted := 0
	for i := range payload.Rows {
		row := payload.Rows[i]
		if row.DataSource == "" {
			row.DataSource = payload.DataSource
		}
		if err := prices.PutRow(ctx, portfolio, asset.AssetID, asset.Ticker, &row); err != nil {
			return persisted, err
		}
		persisted++
	}

	if persisted > 0 {
		last := payload.Rows[len(payload.Rows)-1]
		wm := &models.Watermark{
			LatestDate: last.Date,
			DataSource: payload.DataSource,
			FetchedAt:  s.now().UTC(),
		}
		if err := prices.SetWatermark(ctx, portfolio, asset.AssetID, wm); err != nil {
			return persisted, err
		}
	}
	return persisted, nil
}

func (s *Service) buildResult(asset models.AssetRef, watermark *models.Watermark, payload *models.HistoryPayload, persisted int) *models.FetchResult {
	result := &models.FetchResult{
		RunID:         uuid.New().String(),
		Ticker:        asset.Ticker,
		Market:        asset.Market,
		FetchedAt:     s.now().UTC(),
		RowsPersisted: persisted,
	}
	if watermark != nil {
		d := watermark.LatestDate
		result.LatestStoredDateBeforeRun = &d
	}
	if payload != nil {
		result.Currency = payload.Currency
		result.DataSource = payload.DataSource
		result.IsScraped = payload.IsScraped
		result.RowsFetched = len(payload.Rows)
		result.Rows = payload.Rows
	}
	return result
}

// FetchPortfolioPriceHistory fans the per-asset pipeline out over the
// throttle. A failing asset is reported in the batch result and never
// aborts its siblings.
func (s *Service) FetchPortfolioPriceHistory(ctx context.Context, portfolio string, assets []models.AssetRef, opts interfaces.FetchOptions) (*models.BatchResult, error) {
	batch := &models.BatchResult{
		Portfolio: portfolio,
		Assets:    make([]models.AssetResult, len(assets)),
	}

	var wg sync.WaitGroup
	for i, asset := range assets {
		wg.Add(1)
		go func(i int, asset models.AssetRef) {
			defer wg.Done()
			err := s.throttle.Do(ctx, func(ctx context.Context) error {
				result, err := s.AcquireAssetHistory(ctx, portfolio, asset, opts)
				if err != nil {
					return err
				}
				batch.Assets[i] = models.AssetResult{
					Ticker: asset.Ticker,
					Status: models.AssetStatusUpdated,
					Result: result,
				}
				return nil
			})
			if err != nil {
				batch.Assets[i] = models.AssetResult{
					Ticker:  asset.Ticker,
					Status:  models.AssetStatusFailed,
					Message: err.Error(),
				}
			}
		}(i, asset)
	}
	wg.Wait()

	for _, ar := range batch.Assets {
		if ar.Status == models.AssetStatusUpdated {
			batch.Updated++
		} else {
			batch.Failed++
		}
	}

	s.logger.Info().
		Str("portfolio", portfolio).
		Int("updated", batch.Updated).
		Int("failed", batch.Failed).
		Msg("portfolio price history run complete")

	return batch, nil
}

// FetchPriceHistory serves the stored series for a ticker. On a miss (or a
// stale series) with OnDemand set, it runs a cooldown-gated acquisition and
// re-reads.
func (s *Service) FetchPriceHistory(ctx context.Context, ticker string, market models.Market, opts interfaces.ReadOptions) ([]models.PriceRow, error) {
	prices := s.storage.PriceStore()
	rangeOpts := interfaces.RangeOptions{From: opts.From, To: opts.To}

	rows, err := prices.RangeByTicker(ctx, ticker, rangeOpts)
	if err != nil {
		return nil, err
	}

	if !opts.OnDemand || opts.AssetID == "" {
		return rows, nil
	}
	if len(rows) > 0 && common.IsFresh(rows[len(rows)-1].FetchedAt, common.FreshnessDailyBar) {
		return rows, nil
	}
	if s.cooldown != nil && s.cooldown.Active(opts.Portfolio, opts.AssetID) {
		s.logger.Debug().Str("ticker", ticker).Msg("on-demand fetch skipped, cooling down")
		return rows, nil
	}

	asset := models.AssetRef{AssetID: opts.AssetID, Ticker: ticker, Market: market}
	result, err := s.AcquireAssetHistory(ctx, opts.Portfolio, asset, interfaces.FetchOptions{
		Persist:     true,
		Incremental: true,
		AllowEmpty:  true,
	})
	if err != nil {
		// Serve what we have; the failure already started a cooldown.
		s.logger.Warn().Str("ticker", ticker).Err(err).Msg("on-demand fetch failed")
		return rows, nil
	}
	if result.RowsPersisted == 0 {
		// Nothing new upstream. Start a cooldown so repeated reads of a
		// delisted or illiquid ticker do not re-run the provider chain.
		s.markFailure(opts.Portfolio, opts.AssetID)
		return rows, nil
	}

	return prices.RangeByTicker(ctx, ticker, rangeOpts)
}

// GetPriceAtDate returns the row at the exact date, or the most recent
// earlier row within MaxLookbackDays. (nil, nil) when nothing qualifies.
func (s *Service) GetPriceAtDate(ctx context.Context, ticker string, date time.Time, opts interfaces.PriceAtDateOptions) (*models.PriceRow, error) {
	rows, err := s.storage.PriceStore().RangeByTicker(ctx, ticker, interfaces.RangeOptions{
		To:         date,
		Limit:      1,
		Descending: true,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	row := rows[0]
	earliest := date.AddDate(0, 0, -opts.MaxLookbackDays)
	if row.DateKey() < earliest.UTC().Format(models.DateLayout) {
		return nil, nil
	}
	return &row, nil
}

func (s *Service) markFailure(portfolio, assetID string) {
	if s.cooldown != nil && assetID != "" {
		s.cooldown.MarkFailure(portfolio, assetID)
	}
}

func (s *Service) clearFailure(portfolio, assetID string) {
	if s.cooldown != nil && assetID != "" {
		s.cooldown.Clear(portfolio, assetID)
	}
}

// Ensure Service implements PriceHistoryService
var _ interfaces.PriceHistoryService = (*Service)(nil)
