package interfaces

import (
	"context"
	"time"

	"github.com/quiverhq/quiver/internal/models"
)

// RangeOptions configures a sort-key range query over a price partition.
type RangeOptions struct {
	From       time.Time // inclusive lower bound (zero = open)
	To         time.Time // inclusive upper bound (zero = open)
	Limit      int       // 0 = unlimited
	Descending bool
}

// PriceStore is the Persistent Range Store for daily price rows: partition
// key = (portfolio, asset), sort key = ISO date. Puts are idempotent
// upserts; re-writing the same date is safe and convergent. A secondary
// (ticker, date) index supports cross-portfolio lookups.
type PriceStore interface {
	// GetRow point-looks-up one (asset, date) row. Returns (nil, nil) when absent.
	GetRow(ctx context.Context, portfolio, assetID string, date time.Time) (*models.PriceRow, error)

	// Range queries rows for an asset ordered by date.
	Range(ctx context.Context, portfolio, assetID string, opts RangeOptions) ([]models.PriceRow, error)

	// RangeByTicker queries the secondary index ordered by date.
	RangeByTicker(ctx context.Context, ticker string, opts RangeOptions) ([]models.PriceRow, error)

	// PutRow idempotently upserts a row under (portfolio, assetID, date) and
	// mirrors it into the (ticker, date) index.
	PutRow(ctx context.Context, portfolio, assetID, ticker string, row *models.PriceRow) error

	// GetWatermark returns the asset's watermark, or (nil, nil) when the
	// asset has no stored history yet.
	GetWatermark(ctx context.Context, portfolio, assetID string) (*models.Watermark, error)

	// SetWatermark advances the asset's watermark. Called as the last write
	// of a persistence batch so a crash mid-persist leaves the watermark
	// behind the written rows, never ahead.
	SetWatermark(ctx context.Context, portfolio, assetID string, w *models.Watermark) error
}

// LedgerStore persists the transaction ledger. Ingest assigns each
// transaction a monotonic sequence so same-date events replay in creation
// order.
type LedgerStore interface {
	PutTransaction(ctx context.Context, tx *models.Transaction) error
	ListTransactions(ctx context.Context, userID, ticker string) ([]models.Transaction, error)
	ListTickers(ctx context.Context, userID string) ([]string, error)
}

// StorageManager coordinates the storage backends.
type StorageManager interface {
	PriceStore() PriceStore
	LedgerStore() LedgerStore
	Close() error
}
