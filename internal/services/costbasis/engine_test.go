package costbasis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiverhq/quiver/internal/models"
)

func day(s string) time.Time {
	d, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func buy(date string, qty, price, fees float64) models.Transaction {
	return models.Transaction{Type: models.TransactionBuy, Date: day(date), Quantity: qty, UnitPrice: price, Fees: fees}
}

func sell(date string, qty, price float64) models.Transaction {
	return models.Transaction{Type: models.TransactionSell, Date: day(date), Quantity: qty, UnitPrice: price}
}

func TestCalculate_FIFO(t *testing.T) {
	txs := []models.Transaction{
		buy("2024-01-02", 10, 10, 1),
		buy("2024-02-02", 10, 20, 1),
		sell("2024-03-02", 5, 30),
	}

	h := Calculate(txs, models.MethodFIFO, nil)

	assert.Equal(t, 15.0, h.Quantity)
	assert.InDelta(t, 251.5, h.Cost, 1e-9)
	assert.InDelta(t, 16.7667, h.AverageCost, 1e-4)
	assert.InDelta(t, 302.0, h.TotalBuysCost, 1e-9)
	assert.Equal(t, day("2024-01-02"), h.FirstBuyDate)
	assert.Zero(t, h.ClampedSells)
}

func TestCalculate_WeightedAverage(t *testing.T) {
	txs := []models.Transaction{
		buy("2024-01-02", 10, 10, 1),
		buy("2024-02-02", 10, 20, 1),
		sell("2024-03-02", 5, 30),
	}

	h := Calculate(txs, models.MethodWeightedAverage, nil)

	assert.Equal(t, 15.0, h.Quantity)
	assert.InDelta(t, 226.5, h.Cost, 1e-9)
	assert.InDelta(t, 15.1, h.AverageCost, 1e-9)
}

func TestCalculate_SplitAdjusted(t *testing.T) {
	txs := []models.Transaction{
		buy("2024-01-02", 10, 85.04, 0),
	}
	splits := []models.SplitEvent{{Date: day("2024-06-01"), Factor: 8}}

	for _, method := range []models.CostMethod{models.MethodFIFO, models.MethodWeightedAverage} {
		h := Calculate(txs, method, splits)
		assert.Equal(t, 80.0, h.Quantity, string(method))
		assert.InDelta(t, 850.4, h.Cost, 1e-9, string(method))
		assert.InDelta(t, 10.63, h.AverageCost, 1e-9, string(method))
	}
}

func TestCalculate_SplitBetweenTransactions(t *testing.T) {
	// The split applies to the position held before it, not to later buys.
	txs := []models.Transaction{
		buy("2024-01-02", 10, 40, 0),
		buy("2024-07-01", 10, 10, 0),
	}
	splits := []models.SplitEvent{{Date: day("2024-06-01"), Factor: 4}}

	h := Calculate(txs, models.MethodFIFO, splits)

	assert.Equal(t, 50.0, h.Quantity)
	assert.InDelta(t, 500.0, h.Cost, 1e-9)
	assert.InDelta(t, 10.0, h.AverageCost, 1e-9)
}

func TestCalculate_SplitKeepsTotalCost(t *testing.T) {
	txs := []models.Transaction{buy("2024-01-02", 12, 33.33, 2.5)}
	base := Calculate(txs, models.MethodFIFO, nil)

	split := Calculate(txs, models.MethodFIFO, []models.SplitEvent{{Date: day("2024-02-01"), Factor: 5}})

	assert.InDelta(t, base.Cost, split.Cost, 1e-9)
	assert.InDelta(t, base.Quantity*5, split.Quantity, 1e-9)
	assert.InDelta(t, base.AverageCost/5, split.AverageCost, 1e-9)
}

func TestCalculate_FIFOConservation(t *testing.T) {
	txs := []models.Transaction{
		buy("2024-01-02", 100, 5, 1),
		sell("2024-01-10", 30, 6),
		buy("2024-02-02", 50, 7, 1),
		sell("2024-02-10", 40, 8),
	}

	h := Calculate(txs, models.MethodFIFO, nil)

	sold := 30.0 + 40.0
	bought := 100.0 + 50.0
	assert.InDelta(t, bought, h.Quantity+sold, 1e-9)
	assert.LessOrEqual(t, h.Cost, h.TotalBuysCost)
}

func TestCalculate_OverSellClampsAtZero(t *testing.T) {
	txs := []models.Transaction{
		buy("2024-01-02", 10, 10, 0),
		sell("2024-01-10", 25, 12),
	}

	for _, method := range []models.CostMethod{models.MethodFIFO, models.MethodWeightedAverage} {
		h := Calculate(txs, method, nil)
		assert.Zero(t, h.Quantity, string(method))
		assert.Zero(t, h.Cost, string(method))
		assert.Zero(t, h.AverageCost, string(method))
		assert.Equal(t, 1, h.ClampedSells, string(method))
	}
}

func TestCalculate_SameDaySequenceOrder(t *testing.T) {
	// A same-day sell recorded after the buy must consume that buy.
	txs := []models.Transaction{
		{Type: models.TransactionSell, Date: day("2024-01-02"), Quantity: 5, UnitPrice: 11, Seq: 2},
		{Type: models.TransactionBuy, Date: day("2024-01-02"), Quantity: 10, UnitPrice: 10, Seq: 1},
	}

	h := Calculate(txs, models.MethodFIFO, nil)

	require.Equal(t, 5.0, h.Quantity)
	assert.Zero(t, h.ClampedSells)
}

func TestCalculate_SubscriptionCountsAsAcquisition(t *testing.T) {
	txs := []models.Transaction{
		{Type: models.TransactionSubscription, Date: day("2024-01-02"), Quantity: 10, UnitPrice: 9.5},
	}

	h := Calculate(txs, models.MethodFIFO, nil)
	assert.Equal(t, 10.0, h.Quantity)
	assert.InDelta(t, 95.0, h.Cost, 1e-9)
}

func TestCalculate_IncomeEventsDoNotTouchPosition(t *testing.T) {
	txs := []models.Transaction{
		buy("2024-01-02", 10, 10, 0),
		{Type: models.TransactionDividend, Date: day("2024-02-01"), Amount: 12},
		{Type: models.TransactionJCP, Date: day("2024-03-01"), Amount: 5},
	}

	h := Calculate(txs, models.MethodFIFO, nil)
	assert.Equal(t, 10.0, h.Quantity)
	assert.InDelta(t, 100.0, h.Cost, 1e-9)
}

func TestCalculate_EmptyLedger(t *testing.T) {
	h := Calculate(nil, models.MethodFIFO, nil)
	assert.Zero(t, h.Quantity)
	assert.Zero(t, h.Cost)
	assert.True(t, h.FirstBuyDate.IsZero())
}
