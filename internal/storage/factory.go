// Package storage wires the persistence backends used by a cycle.
package storage

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prism/internal/common"
	"github.com/ternarybob/prism/internal/interfaces"
	"github.com/ternarybob/prism/internal/storage/badger"
	"github.com/ternarybob/prism/internal/storage/jsonfile"
)

// Manager owns the dashboard snapshot, the history log and the optional response cache.
type Manager struct {
	State   interfaces.StateStorage
	History interfaces.HistoryStorage
	// Cache is nil when caching is disabled
	Cache interfaces.KeyValueStorage

	db *badger.BadgerDB
}

// NewStorageManager creates the stores described by config
func NewStorageManager(logger arbor.ILogger, config *common.Config) (*Manager, error) {
	m := &Manager{
		State:   jsonfile.NewStateStore(config.Storage.StatePath, logger),
		History: jsonfile.NewHistoryStore(config.Storage.HistoryPath, config.Cycle.HistoryLimit, logger),
	}

	if config.Storage.Cache.Enabled {
		db, err := badger.NewBadgerDB(logger, &config.Storage.Cache)
		if err != nil {
			return nil, err
		}
		m.db = db
		m.Cache = badger.NewKVStorage(db, logger)
	}

	logger.Debug().
		Str("state_path", config.Storage.StatePath).
		Str("history_path", config.Storage.HistoryPath).
		Bool("cache_enabled", m.Cache != nil).
		Msg("Storage initialized")

	return m, nil
}

// Close releases the cache database if one was opened
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
