package badger

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/quiverhq/quiver/internal/interfaces"
	"github.com/quiverhq/quiver/internal/models"
)

func ledgerKey(userID, ticker, dateKey string, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%s|%s|%s|%020d", prefixLedger, userID, strings.ToUpper(ticker), dateKey, seq))
}

// PutTransaction appends a transaction to the user's ledger. Missing IDs
// are assigned, and the store sequence gives same-day transactions a stable
// insertion order.
func (s *Store) PutTransaction(ctx context.Context, tx *models.Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	if tx.Seq == 0 {
		seq, err := s.ledgerSeq.Next()
		if err != nil {
			return &models.PersistenceError{Op: "put_transaction", Key: tx.ID, Err: err}
		}
		// Sequence values start at 0; reserve 0 for "unassigned".
		tx.Seq = seq + 1
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(tx)
	if err != nil {
		return &models.PersistenceError{Op: "put_transaction", Key: tx.ID, Err: err}
	}

	key := ledgerKey(tx.UserID, tx.Ticker, tx.Date.Format(models.DateLayout), tx.Seq)
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, payload)
	})
	if err != nil {
		return &models.PersistenceError{Op: "put_transaction", Key: string(key), Err: err}
	}
	return nil
}

// ListTransactions returns the user's transactions for one ticker in date
// order, same-day entries in insertion order.
func (s *Store) ListTransactions(ctx context.Context, userID, ticker string) ([]models.Transaction, error) {
	prefix := []byte(fmt.Sprintf("%s%s|%s|", prefixLedger, userID, strings.ToUpper(ticker)))

	var txs []models.Transaction
	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var t models.Transaction
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &t)
			}); err != nil {
				return err
			}
			txs = append(txs, t)
		}
		return nil
	})
	if err != nil {
		return nil, &models.PersistenceError{Op: "list_transactions", Key: string(prefix), Err: err}
	}

	models.SortTransactions(txs)
	return txs, nil
}

// ListTickers returns the distinct tickers present in the user's ledger.
func (s *Store) ListTickers(ctx context.Context, userID string) ([]string, error) {
	prefix := []byte(fmt.Sprintf("%s%s|", prefixLedger, userID))

	seen := make(map[string]struct{})
	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		iterOpts.PrefetchValues = false
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			rest := string(it.Item().Key()[len(prefix):])
			ticker, _, ok := strings.Cut(rest, "|")
			if ok {
				seen[ticker] = struct{}{}
			}
		}
		return nil
	})
	if err != nil {
		return nil, &models.PersistenceError{Op: "list_tickers", Key: string(prefix), Err: err}
	}

	tickers := make([]string, 0, len(seen))
	for t := range seen {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)
	return tickers, nil
}

// Ensure Store implements LedgerStore
var _ interfaces.LedgerStore = (*Store)(nil)
