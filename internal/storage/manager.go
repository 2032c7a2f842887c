// Package storage wires the concrete stores behind the StorageManager
// interface consumed by the services.
package storage

import (
	"github.com/quiverhq/quiver/internal/common"
	"github.com/quiverhq/quiver/internal/interfaces"
	badgerstore "github.com/quiverhq/quiver/internal/storage/badger"
)

// Manager owns the Badger store and hands out its typed views.
type Manager struct {
	store *badgerstore.Store
}

// NewManager opens storage at the configured path.
func NewManager(cfg *common.Config, logger *common.Logger) (*Manager, error) {
	store, err := badgerstore.NewStore(logger, cfg.Storage.Path)
	if err != nil {
		return nil, err
	}
	return &Manager{store: store}, nil
}

// PriceStore returns the price-history store.
func (m *Manager) PriceStore() interfaces.PriceStore {
	return m.store
}

// LedgerStore returns the transaction ledger store.
func (m *Manager) LedgerStore() interfaces.LedgerStore {
	return m.store
}

// Close closes the underlying database.
func (m *Manager) Close() error {
	return m.store.Close()
}

// Ensure Manager implements StorageManager
var _ interfaces.StorageManager = (*Manager)(nil)
