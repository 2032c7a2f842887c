package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/quiverhq/quiver/internal/interfaces"
	"github.com/quiverhq/quiver/internal/models"
)

// StartRefresh starts the cron-driven daily acquisition run over the
// configured portfolios. No-op when refresh is disabled.
func (a *App) StartRefresh() error {
	if !a.Config.Refresh.Enabled {
		a.Logger.Info().Msg("scheduled refresh disabled")
		return nil
	}

	c := cron.New(cron.WithSeconds())
	_, err := c.AddFunc(a.Config.Refresh.Cron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		a.RefreshAll(ctx)
	})
	if err != nil {
		return err
	}

	c.Start()
	a.refreshStop = func() {
		<-c.Stop().Done()
	}

	a.Logger.Info().Str("cron", a.Config.Refresh.Cron).Msg("scheduled refresh started")
	return nil
}

// RefreshAll runs an incremental acquisition over every configured
// portfolio, one at a time.
func (a *App) RefreshAll(ctx context.Context) {
	for _, portfolio := range a.Config.Portfolios {
		if err := a.RefreshPortfolio(ctx, portfolio); err != nil {
			a.Logger.Error().Str("portfolio", portfolio).Err(err).Msg("portfolio refresh failed")
		}
	}
}

// RefreshPortfolio fetches incremental history for every ticker present in
// the portfolio's ledger.
func (a *App) RefreshPortfolio(ctx context.Context, portfolio string) error {
	tickers, err := a.Storage.LedgerStore().ListTickers(ctx, portfolio)
	if err != nil {
		return err
	}
	if len(tickers) == 0 {
		a.Logger.Debug().Str("portfolio", portfolio).Msg("no ledger tickers to refresh")
		return nil
	}

	assets := make([]models.AssetRef, 0, len(tickers))
	for _, t := range tickers {
		assets = append(assets, models.AssetRef{
			AssetID: t,
			Ticker:  t,
			Market:  inferMarket(t),
		})
	}

	start := time.Now()
	batch, err := a.PriceHistoryService.FetchPortfolioPriceHistory(ctx, portfolio, assets, interfaces.FetchOptions{
		Persist:     true,
		Incremental: true,
		AllowEmpty:  true,
	})
	if err != nil {
		return err
	}

	a.Logger.Info().
		Str("portfolio", portfolio).
		Int("updated", batch.Updated).
		Int("failed", batch.Failed).
		Dur("elapsed", time.Since(start)).
		Msg("portfolio refresh complete")
	return nil
}
