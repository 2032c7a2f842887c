package pricehistory

import (
	"context"
	"fmt"

	"github.com/quiverhq/quiver/internal/interfaces"
	"github.com/quiverhq/quiver/internal/models"
)

// chainEntry pairs a provider with its fallthrough policy. Every entry
// falls through to the next on transport failure; whether an incomplete
// response also falls through is declared per entry.
type chainEntry struct {
	provider             interfaces.HistoryProvider
	continueOnIncomplete bool
}

// Chain tries providers in order until one yields rows.
type Chain struct {
	entries []chainEntry
}

// NewEquityChain builds the stocks/funds chain: the primary provider, then
// the secondary, each falling through on both transport failure and
// incomplete data.
func NewEquityChain(primary, secondary interfaces.HistoryProvider) *Chain {
	return &Chain{entries: []chainEntry{
		{provider: primary, continueOnIncomplete: true},
		{provider: secondary, continueOnIncomplete: true},
	}}
}

// NewFixedIncomeChain builds the single-provider fixed-income chain. The
// CSV adapter already tries its mirrors internally, so an incomplete result
// from it is final.
func NewFixedIncomeChain(csv interfaces.HistoryProvider) *Chain {
	return &Chain{entries: []chainEntry{
		{provider: csv, continueOnIncomplete: false},
	}}
}

// Fetch walks the chain. The error returned when every provider fails is
// the last one observed.
func (c *Chain) Fetch(ctx context.Context, symbol string, opts ...interfaces.HistoryOption) (*models.HistoryPayload, error) {
	if len(c.entries) == 0 {
		return nil, &models.ConfigurationError{Field: "chain", Reason: "no providers configured"}
	}

	var lastErr error
	for i, entry := range c.entries {
		payload, err := entry.provider.FetchHistory(ctx, symbol, opts...)
		if err == nil {
			return payload, nil
		}
		lastErr = err

		last := i == len(c.entries)-1
		switch {
		case models.IsProviderUnavailable(err):
			if last {
				return nil, err
			}
		case models.IsDataIncomplete(err):
			if !entry.continueOnIncomplete || last {
				return nil, err
			}
		default:
			return nil, err
		}
	}
	return nil, fmt.Errorf("provider chain exhausted for %s: %w", symbol, lastErr)
}
