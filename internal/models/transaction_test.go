package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortTransactions_SameDateUsesSequence(t *testing.T) {
	txs := []Transaction{
		{Ticker: "PETR4", Date: day("2024-02-01"), Seq: 2},
		{Ticker: "PETR4", Date: day("2024-01-01"), Seq: 3},
		{Ticker: "PETR4", Date: day("2024-02-01"), Seq: 1},
	}

	SortTransactions(txs)

	assert.Equal(t, uint64(3), txs[0].Seq)
	assert.Equal(t, uint64(1), txs[1].Seq)
	assert.Equal(t, uint64(2), txs[2].Seq)
}

func TestEffectiveAmount(t *testing.T) {
	tx := Transaction{Quantity: 10, UnitPrice: 2.5}
	assert.Equal(t, 25.0, tx.EffectiveAmount())

	tx.Amount = 30
	assert.Equal(t, 30.0, tx.EffectiveAmount())
}

func TestParseTransactionType(t *testing.T) {
	tt, err := ParseTransactionType(" Buy ")
	require.NoError(t, err)
	assert.Equal(t, TransactionBuy, tt)

	_, err = ParseTransactionType("short")
	assert.Error(t, err)
}

func TestParseCostMethod_RejectsUnknown(t *testing.T) {
	m, err := ParseCostMethod("FIFO")
	require.NoError(t, err)
	assert.Equal(t, MethodFIFO, m)

	_, err = ParseCostMethod("lifo")
	assert.Error(t, err)
}
