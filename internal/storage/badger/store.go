// Package badger provides Badger-based storage for price history, fetch
// watermarks, and the transaction ledger.
package badger

import (
	"fmt"
	"os"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/quiverhq/quiver/internal/common"
)

// Key prefixes. Dates are rendered as yyyy-mm-dd so lexical order is
// chronological order within a prefix.
const (
	prefixPrice     = "price|"  // price|<portfolio>|<asset>|<date>
	prefixTicker    = "tkr|"    // tkr|<ticker>|<date>
	prefixWatermark = "meta|"   // meta|<portfolio>|<asset>
	prefixLedger    = "ledger|" // ledger|<user>|<ticker>|<date>|<seq>

	ledgerSeqKey       = "seq|ledger"
	ledgerSeqBandwidth = 64
)

// Store wraps a Badger database connection.
type Store struct {
	db        *badger.DB
	logger    *common.Logger
	ledgerSeq *badger.Sequence
}

// NewStore opens (or creates) a Badger store at the given directory path.
// An empty path opens an in-memory store, used by tests.
func NewStore(logger *common.Logger, path string) (*Store, error) {
	var options badger.Options
	if path == "" {
		options = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0755); err != nil {
			return nil, fmt.Errorf("failed to create badger directory %s: %w", path, err)
		}
		options = badger.DefaultOptions(path)
	}
	options = options.WithLogger(nil) // Disable default badger logger

	db, err := badger.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	seq, err := db.GetSequence([]byte(ledgerSeqKey), ledgerSeqBandwidth)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open ledger sequence: %w", err)
	}

	logger.Debug().Str("path", path).Msg("Badger store opened")

	return &Store{
		db:        db,
		logger:    logger,
		ledgerSeq: seq,
	}, nil
}

// DB returns the underlying badger database.
func (s *Store) DB() *badger.DB {
	return s.db
}

// Close releases the ledger sequence and closes the database.
func (s *Store) Close() error {
	if s.ledgerSeq != nil {
		_ = s.ledgerSeq.Release()
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
