package costbasis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quiverhq/quiver/internal/models"
)

func f64(v float64) *float64 { return &v }

func TestResolveWithSplitHeuristic_NoSplits(t *testing.T) {
	txs := []models.Transaction{buy("2024-01-02", 10, 10, 0)}

	h, resolution := ResolveWithSplitHeuristic(txs, models.MethodFIFO, nil, f64(10))

	assert.Equal(t, models.ResolutionWithoutSplits, resolution)
	assert.Equal(t, 10.0, h.Quantity)
}

func TestResolveWithSplitHeuristic_LedgerAlreadyAdjusted(t *testing.T) {
	// The broker export already reflects the 8x split: 80 shares on the
	// ledger, 80 reported externally. Replaying the split would yield 640.
	txs := []models.Transaction{buy("2024-01-02", 80, 10.63, 0)}
	splits := []models.SplitEvent{{Date: day("2024-06-01"), Factor: 8}}

	h, resolution := ResolveWithSplitHeuristic(txs, models.MethodFIFO, splits, f64(80))

	assert.Equal(t, models.ResolutionWithoutSplits, resolution)
	assert.Equal(t, 80.0, h.Quantity)
}

func TestResolveWithSplitHeuristic_RawLedgerNeedsSplit(t *testing.T) {
	txs := []models.Transaction{buy("2024-01-02", 10, 85.04, 0)}
	splits := []models.SplitEvent{{Date: day("2024-06-01"), Factor: 8}}

	h, resolution := ResolveWithSplitHeuristic(txs, models.MethodFIFO, splits, f64(80))

	assert.Equal(t, models.ResolutionWithSplits, resolution)
	assert.Equal(t, 80.0, h.Quantity)
	assert.InDelta(t, 10.63, h.AverageCost, 1e-9)
}

func TestResolveWithSplitHeuristic_NoExpectedQuantityTrustsSplits(t *testing.T) {
	txs := []models.Transaction{buy("2024-01-02", 10, 85.04, 0)}
	splits := []models.SplitEvent{{Date: day("2024-06-01"), Factor: 8}}

	for _, expected := range []*float64{nil, f64(math.NaN()), f64(math.Inf(1)), f64(-5)} {
		_, resolution := ResolveWithSplitHeuristic(txs, models.MethodFIFO, splits, expected)
		assert.Equal(t, models.ResolutionWithSplits, resolution)
	}
}

func TestResolveWithSplitHeuristic_TiePrefersSplits(t *testing.T) {
	// Expected sits exactly halfway between the two candidates (10 vs 20).
	txs := []models.Transaction{buy("2024-01-02", 10, 10, 0)}
	splits := []models.SplitEvent{{Date: day("2024-06-01"), Factor: 2}}

	_, resolution := ResolveWithSplitHeuristic(txs, models.MethodFIFO, splits, f64(15))

	assert.Equal(t, models.ResolutionWithSplits, resolution)
}
