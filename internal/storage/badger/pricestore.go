package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/quiverhq/quiver/internal/interfaces"
	"github.com/quiverhq/quiver/internal/models"
)

func priceKey(portfolio, assetID, dateKey string) []byte {
	return []byte(fmt.Sprintf("%s%s|%s|%s", prefixPrice, portfolio, assetID, dateKey))
}

func tickerKey(ticker, dateKey string) []byte {
	return []byte(fmt.Sprintf("%s%s|%s", prefixTicker, strings.ToUpper(ticker), dateKey))
}

func watermarkKey(portfolio, assetID string) []byte {
	return []byte(fmt.Sprintf("%s%s|%s", prefixWatermark, portfolio, assetID))
}

// GetRow returns the stored row for the exact date, or nil when absent.
func (s *Store) GetRow(ctx context.Context, portfolio, assetID string, date time.Time) (*models.PriceRow, error) {
	dateKey := date.Format(models.DateLayout)
	var row *models.PriceRow
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(priceKey(portfolio, assetID, dateKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var r models.PriceRow
			if err := json.Unmarshal(val, &r); err != nil {
				return err
			}
			row = &r
			return nil
		})
	})
	if err != nil {
		return nil, &models.PersistenceError{Op: "get_row", Key: string(priceKey(portfolio, assetID, dateKey)), Err: err}
	}
	return row, nil
}

// PutRow upserts one daily row under both the portfolio key and the ticker
// index. Writing the same date twice overwrites in place, which is what
// makes re-fetching overlapping ranges idempotent.
func (s *Store) PutRow(ctx context.Context, portfolio, assetID, ticker string, row *models.PriceRow) error {
	payload, err := json.Marshal(row)
	if err != nil {
		return &models.PersistenceError{Op: "put_row", Key: assetID, Err: err}
	}
	dateKey := row.DateKey()
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(priceKey(portfolio, assetID, dateKey), payload); err != nil {
			return err
		}
		return txn.Set(tickerKey(ticker, dateKey), payload)
	})
	if err != nil {
		return &models.PersistenceError{Op: "put_row", Key: string(priceKey(portfolio, assetID, dateKey)), Err: err}
	}
	return nil
}

// Range returns rows for the asset ordered by date, honoring the From/To
// bounds (inclusive), Limit, and Descending options.
func (s *Store) Range(ctx context.Context, portfolio, assetID string, opts interfaces.RangeOptions) ([]models.PriceRow, error) {
	prefix := []byte(fmt.Sprintf("%s%s|%s|", prefixPrice, portfolio, assetID))
	return s.scanRows(prefix, opts)
}

// RangeByTicker reads the ticker index instead of a portfolio scope. Split
// and dividend history lives here for ledger-side computations.
func (s *Store) RangeByTicker(ctx context.Context, ticker string, opts interfaces.RangeOptions) ([]models.PriceRow, error) {
	prefix := []byte(fmt.Sprintf("%s%s|", prefixTicker, strings.ToUpper(ticker)))
	return s.scanRows(prefix, opts)
}

func (s *Store) scanRows(prefix []byte, opts interfaces.RangeOptions) ([]models.PriceRow, error) {
	var rows []models.PriceRow
	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		iterOpts.Reverse = opts.Descending
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		seek := prefix
		if opts.Descending {
			// 0xff sorts after every date suffix under the prefix.
			seek = append(append([]byte{}, prefix...), 0xff)
		} else if !opts.From.IsZero() {
			seek = append(append([]byte{}, prefix...), opts.From.Format(models.DateLayout)...)
		}

		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			dateKey := string(item.Key()[len(prefix):])
			if !opts.From.IsZero() && dateKey < opts.From.Format(models.DateLayout) {
				if opts.Descending {
					break
				}
				continue
			}
			if !opts.To.IsZero() && dateKey > opts.To.Format(models.DateLayout) {
				if opts.Descending {
					continue
				}
				break
			}
			var r models.PriceRow
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			}); err != nil {
				return err
			}
			rows = append(rows, r)
			if opts.Limit > 0 && len(rows) >= opts.Limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, &models.PersistenceError{Op: "range", Key: string(prefix), Err: err}
	}
	return rows, nil
}

// GetWatermark returns the fetch watermark for the asset, or nil when the
// asset has never been fetched.
func (s *Store) GetWatermark(ctx context.Context, portfolio, assetID string) (*models.Watermark, error) {
	var wm *models.Watermark
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(watermarkKey(portfolio, assetID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var w models.Watermark
			if err := json.Unmarshal(val, &w); err != nil {
				return err
			}
			wm = &w
			return nil
		})
	})
	if err != nil {
		return nil, &models.PersistenceError{Op: "get_watermark", Key: string(watermarkKey(portfolio, assetID)), Err: err}
	}
	return wm, nil
}

// SetWatermark records the latest persisted date for the asset. It is
// written after the rows it covers, so a crash between the two re-fetches
// an already-stored window instead of skipping one.
func (s *Store) SetWatermark(ctx context.Context, portfolio, assetID string, wm *models.Watermark) error {
	payload, err := json.Marshal(wm)
	if err != nil {
		return &models.PersistenceError{Op: "set_watermark", Key: assetID, Err: err}
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(watermarkKey(portfolio, assetID), payload)
	})
	if err != nil {
		return &models.PersistenceError{Op: "set_watermark", Key: string(watermarkKey(portfolio, assetID)), Err: err}
	}
	return nil
}

// Ensure Store implements PriceStore
var _ interfaces.PriceStore = (*Store)(nil)
