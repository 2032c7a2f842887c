package models

import (
	"fmt"
	"strings"
	"time"
)

// CostMethod selects the cost-basis accounting method.
type CostMethod string

const (
	MethodFIFO            CostMethod = "fifo"
	MethodWeightedAverage CostMethod = "weighted_average"
)

// ParseCostMethod validates a cost method at the boundary. Unrecognized
// values are rejected rather than silently defaulted.
func ParseCostMethod(s string) (CostMethod, error) {
	switch CostMethod(strings.ToLower(strings.TrimSpace(s))) {
	case MethodFIFO:
		return MethodFIFO, nil
	case MethodWeightedAverage:
		return MethodWeightedAverage, nil
	default:
		return "", fmt.Errorf("unrecognized cost method %q", s)
	}
}

// Holdings is the computed position state after replaying a ledger.
// Quantity and Cost are never negative. AverageCost is Cost/Quantity as a
// derived ratio (0 when the position is empty).
type Holdings struct {
	Method        CostMethod `json:"method"`
	Quantity      float64    `json:"quantity"`
	Cost          float64    `json:"cost"`
	AverageCost   float64    `json:"average_cost"`
	TotalBuysCost float64    `json:"total_buys_cost"`
	FirstBuyDate  time.Time  `json:"first_buy_date,omitempty"`

	// ClampedSells counts sells whose quantity exceeded the held quantity
	// and was capped. Non-zero values usually mean the ledger is missing
	// buys from before the tracked window.
	ClampedSells int `json:"clamped_sells,omitempty"`
}
