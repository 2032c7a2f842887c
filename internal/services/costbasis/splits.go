package costbasis

import (
	"math"

	"github.com/quiverhq/quiver/internal/models"
)

// ResolveWithSplitHeuristic computes holdings twice, with and without the
// split history, and picks the branch whose resulting quantity lands closer
// to the externally observed position. Ledgers imported from brokers often
// already carry post-split quantities, in which case replaying splits would
// double-count them.
//
// When there are no splits to apply, or no expected quantity to compare
// against, the choice is unambiguous: no splits means the plain computation,
// and a missing or unusable expectation defaults to trusting the split
// history. Ties also favor the split history.
func ResolveWithSplitHeuristic(txs []models.Transaction, method models.CostMethod, splits []models.SplitEvent, expectedQuantity *float64) (models.Holdings, models.SplitResolution) {
	if len(splits) == 0 {
		return Calculate(txs, method, nil), models.ResolutionWithoutSplits
	}

	withSplits := Calculate(txs, method, splits)
	if expectedQuantity == nil || math.IsNaN(*expectedQuantity) || math.IsInf(*expectedQuantity, 0) || *expectedQuantity < 0 {
		return withSplits, models.ResolutionWithSplits
	}

	withoutSplits := Calculate(txs, method, nil)
	expected := *expectedQuantity

	if math.Abs(withoutSplits.Quantity-expected) < math.Abs(withSplits.Quantity-expected) {
		return withoutSplits, models.ResolutionWithoutSplits
	}
	return withSplits, models.ResolutionWithSplits
}
