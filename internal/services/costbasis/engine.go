// Package costbasis computes holdings and average acquisition cost from a
// transaction ledger, applying corporate split events as they occur between
// transactions. The calculation is pure: callers load the ledger and split
// history and get back a Holdings snapshot.
package costbasis

import (
	"math"

	"github.com/quiverhq/quiver/internal/models"
)

// lot is one acquisition parcel for FIFO consumption.
type lot struct {
	quantity    float64
	costPerUnit float64
}

// Calculate replays the transactions in date order under the given cost
// method, applying each split event to the open position before the first
// transaction dated on or after it. Splits dated after the last transaction
// are applied at the end.
//
// Sells beyond the held quantity are clamped at zero rather than rejected;
// the number of clamped sells is reported on the result so callers can
// surface ledgers that disagree with the actual position.
func Calculate(txs []models.Transaction, method models.CostMethod, splits []models.SplitEvent) models.Holdings {
	sorted := make([]models.Transaction, len(txs))
	copy(sorted, txs)
	models.SortTransactions(sorted)

	h := models.Holdings{Method: method}
	var lots []lot
	splitIdx := 0

	applySplit := func(factor float64) {
		if factor <= 0 || factor == 1 {
			return
		}
		h.Quantity *= factor
		for i := range lots {
			lots[i].quantity *= factor
			lots[i].costPerUnit /= factor
		}
	}

	for _, tx := range sorted {
		for splitIdx < len(splits) && !splits[splitIdx].Date.After(tx.Date) {
			applySplit(splits[splitIdx].Factor)
			splitIdx++
		}
		switch {
		case tx.Type.IsAcquisition():
			cost := tx.Quantity*tx.UnitPrice + tx.Fees
			if tx.Quantity <= 0 {
				continue
			}
			if h.FirstBuyDate.IsZero() {
				h.FirstBuyDate = tx.Date
			}
			h.TotalBuysCost += cost
			h.Quantity += tx.Quantity
			lots = append(lots, lot{quantity: tx.Quantity, costPerUnit: cost / tx.Quantity})

		case tx.Type == models.TransactionSell:
			remaining := tx.Quantity
			if remaining > h.Quantity {
				remaining = h.Quantity
				h.ClampedSells++
			}
			h.Quantity -= remaining

			if method == models.MethodFIFO {
				for remaining > 0 && len(lots) > 0 {
					if lots[0].quantity <= remaining {
						remaining -= lots[0].quantity
						lots = lots[1:]
					} else {
						lots[0].quantity -= remaining
						remaining = 0
					}
				}
			} else {
				// Weighted average keeps one implicit lot; selling
				// removes quantity at the running average cost.
				cost := lotsCost(lots)
				var avg float64
				if qty := lotsQuantity(lots); qty > 0 {
					avg = cost / qty
				}
				lots = rebuildAverageLot(h.Quantity, avg)
			}
		}

		if method == models.MethodWeightedAverage {
			// Collapse parcels so subsequent sells draw at the blended cost.
			qty := lotsQuantity(lots)
			if qty > 0 {
				lots = rebuildAverageLot(qty, lotsCost(lots)/qty)
			} else {
				lots = nil
			}
		}
	}

	for splitIdx < len(splits) {
		applySplit(splits[splitIdx].Factor)
		splitIdx++
	}

	h.Cost = lotsCost(lots)
	if h.Quantity > 0 {
		h.AverageCost = h.Cost / h.Quantity
	} else {
		h.Quantity = 0
		h.Cost = 0
		h.AverageCost = 0
	}
	if math.Abs(h.Quantity) < 1e-9 {
		h.Quantity = 0
		h.Cost = 0
		h.AverageCost = 0
	}
	return h
}

func lotsQuantity(lots []lot) float64 {
	var q float64
	for _, l := range lots {
		q += l.quantity
	}
	return q
}

func lotsCost(lots []lot) float64 {
	var c float64
	for _, l := range lots {
		c += l.quantity * l.costPerUnit
	}
	return c
}

func rebuildAverageLot(quantity, costPerUnit float64) []lot {
	if quantity <= 0 {
		return nil
	}
	return []lot{{quantity: quantity, costPerUnit: costPerUnit}}
}
