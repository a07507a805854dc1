package badger

import (
	"github.com/ternarybob/arbor"

	"github.com/brandlens/brandlens/internal/common"
	"github.com/brandlens/brandlens/internal/interfaces"
)

// Manager wires the Badger-backed storage implementations together
type Manager struct {
	db      *BadgerDB
	keyword interfaces.KeywordStorage
	scan    interfaces.ScanStorage
	quota   interfaces.QuotaStorage
	logger  arbor.ILogger
}

// NewManager opens the database and constructs all storage services
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (*Manager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	return &Manager{
		db:      db,
		keyword: NewKeywordStorage(db, logger),
		scan:    NewScanStorage(db, logger),
		quota:   NewQuotaStorage(db, logger),
		logger:  logger,
	}, nil
}

func (m *Manager) KeywordStorage() interfaces.KeywordStorage {
	return m.keyword
}

func (m *Manager) ScanStorage() interfaces.ScanStorage {
	return m.scan
}

func (m *Manager) QuotaStorage() interfaces.QuotaStorage {
	return m.quota
}

// DB exposes the underlying connection for key-space components
// (answer cache, rate limiter, queue) that work on the raw Badger handle.
func (m *Manager) DB() *BadgerDB {
	return m.db
}

func (m *Manager) Close() error {
	m.logger.Debug().Msg("Closing storage manager")
	return m.db.Close()
}
