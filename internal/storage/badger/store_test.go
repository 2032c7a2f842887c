package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiverhq/quiver/internal/common"
	"github.com/quiverhq/quiver/internal/interfaces"
	"github.com/quiverhq/quiver/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(common.NewSilentLogger(), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func day(s string) time.Time {
	d, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func row(date string, close float64) *models.PriceRow {
	return &models.PriceRow{Date: day(date), Close: close, DataSource: "yahoo"}
}

func TestPriceStore_PutGetRow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutRow(ctx, "main", "asset-1", "PETR4", row("2024-01-02", 38.5)))

	got, err := store.GetRow(ctx, "main", "asset-1", day("2024-01-02"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 38.5, got.Close)

	missing, err := store.GetRow(ctx, "main", "asset-1", day("2024-01-03"))
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPriceStore_PutRowIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutRow(ctx, "main", "asset-1", "PETR4", row("2024-01-02", 38.5)))
	require.NoError(t, store.PutRow(ctx, "main", "asset-1", "PETR4", row("2024-01-02", 39.0)))

	rows, err := store.Range(ctx, "main", "asset-1", interfaces.RangeOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 39.0, rows[0].Close)
}

func TestPriceStore_RangeBoundsAndOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, d := range []string{"2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05"} {
		require.NoError(t, store.PutRow(ctx, "main", "asset-1", "PETR4", row(d, 1)))
	}

	rows, err := store.Range(ctx, "main", "asset-1", interfaces.RangeOptions{
		From: day("2024-01-03"),
		To:   day("2024-01-04"),
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, day("2024-01-03"), rows[0].Date)
	assert.Equal(t, day("2024-01-04"), rows[1].Date)

	latest, err := store.Range(ctx, "main", "asset-1", interfaces.RangeOptions{
		Limit:      1,
		Descending: true,
	})
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, day("2024-01-05"), latest[0].Date)
}

func TestPriceStore_RangeByTickerCrossesPortfolios(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutRow(ctx, "main", "asset-1", "PETR4", row("2024-01-02", 1)))
	require.NoError(t, store.PutRow(ctx, "other", "asset-9", "petr4", row("2024-01-03", 2)))

	rows, err := store.RangeByTicker(ctx, "PETR4", interfaces.RangeOptions{})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestPriceStore_Watermark(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	wm, err := store.GetWatermark(ctx, "main", "asset-1")
	require.NoError(t, err)
	assert.Nil(t, wm, "never-fetched asset has no watermark")

	require.NoError(t, store.SetWatermark(ctx, "main", "asset-1", &models.Watermark{
		LatestDate: day("2024-01-05"),
		DataSource: "yahoo",
	}))

	wm, err = store.GetWatermark(ctx, "main", "asset-1")
	require.NoError(t, err)
	require.NotNil(t, wm)
	assert.Equal(t, day("2024-01-05"), wm.LatestDate)
	assert.Equal(t, "yahoo", wm.DataSource)
}

func TestLedgerStore_AssignsIDAndSequence(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := &models.Transaction{UserID: "u1", Ticker: "PETR4", Type: models.TransactionBuy, Date: day("2024-01-02"), Quantity: 10, UnitPrice: 10}
	second := &models.Transaction{UserID: "u1", Ticker: "PETR4", Type: models.TransactionSell, Date: day("2024-01-02"), Quantity: 5, UnitPrice: 11}

	require.NoError(t, store.PutTransaction(ctx, first))
	require.NoError(t, store.PutTransaction(ctx, second))

	assert.NotEmpty(t, first.ID)
	assert.NotZero(t, first.Seq)
	assert.Greater(t, second.Seq, first.Seq)

	txs, err := store.ListTransactions(ctx, "u1", "PETR4")
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, models.TransactionBuy, txs[0].Type, "same-day entries in insertion order")
}

func TestLedgerStore_ListTickers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, ticker := range []string{"VALE3", "PETR4", "PETR4"} {
		require.NoError(t, store.PutTransaction(ctx, &models.Transaction{
			UserID: "u1", Ticker: ticker, Type: models.TransactionBuy, Date: day("2024-01-02"), Quantity: 1, UnitPrice: 1,
		}))
	}
	require.NoError(t, store.PutTransaction(ctx, &models.Transaction{
		UserID: "u2", Ticker: "BBAS3", Type: models.TransactionBuy, Date: day("2024-01-02"), Quantity: 1, UnitPrice: 1,
	}))

	tickers, err := store.ListTickers(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"PETR4", "VALE3"}, tickers)
}
