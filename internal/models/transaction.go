package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// TransactionType categorizes ledger events.
type TransactionType string

const (
	TransactionBuy          TransactionType = "buy"
	TransactionSell         TransactionType = "sell"
	TransactionDividend     TransactionType = "dividend"
	TransactionJCP          TransactionType = "jcp" // juros sobre capital próprio
	TransactionSubscription TransactionType = "subscription"
	TransactionTransfer     TransactionType = "transfer"
	TransactionTax          TransactionType = "tax"
)

// IsAcquisition reports whether the transaction opens or extends a position.
func (t TransactionType) IsAcquisition() bool {
	return t == TransactionBuy || t == TransactionSubscription
}

// IsIncome reports whether the transaction is a cash distribution.
func (t TransactionType) IsIncome() bool {
	return t == TransactionDividend || t == TransactionJCP
}

// ParseTransactionType validates a transaction type at the boundary.
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(strings.ToLower(strings.TrimSpace(s))) {
	case TransactionBuy:
		return TransactionBuy, nil
	case TransactionSell:
		return TransactionSell, nil
	case TransactionDividend:
		return TransactionDividend, nil
	case TransactionJCP:
		return TransactionJCP, nil
	case TransactionSubscription:
		return TransactionSubscription, nil
	case TransactionTransfer:
		return TransactionTransfer, nil
	case TransactionTax:
		return TransactionTax, nil
	default:
		return "", fmt.Errorf("unrecognized transaction type %q", s)
	}
}

// Transaction is an economic event on an asset. Quantity is always >= 0;
// direction is implied by Type. Seq is a monotonic creation-order sequence
// assigned at ledger ingest. It breaks same-date ties deterministically
// because lot consumption is order-sensitive.
type Transaction struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Ticker    string          `json:"ticker"`
	Type      TransactionType `json:"type"`
	Date      time.Time       `json:"date"`
	Quantity  float64         `json:"quantity"`
	UnitPrice float64         `json:"unit_price"`
	Fees      float64         `json:"fees"`
	Amount    float64         `json:"amount,omitempty"`
	Seq       uint64          `json:"seq"`
	CreatedAt time.Time       `json:"created_at"`
}

// EffectiveAmount returns the cash amount of the transaction, defaulting to
// quantity × unit price when no explicit amount was recorded.
func (t *Transaction) EffectiveAmount() float64 {
	if t.Amount != 0 {
		return t.Amount
	}
	return t.Quantity * t.UnitPrice
}

// SortTransactions orders transactions chronologically with the creation
// sequence as the stable tiebreaker.
func SortTransactions(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.Before(txs[j].Date)
		}
		return txs[i].Seq < txs[j].Seq
	})
}
