package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/brandlens/brandlens/internal/interfaces"
)

// quotaRecord is a per-subject limit override for one rate limit policy
type quotaRecord struct {
	Key     string `badgerhold:"key"`
	Policy  string
	Subject string
	Limit   int
}

func quotaKey(policy, subject string) string {
	return fmt.Sprintf("quota:%s:%s", policy, subject)
}

// QuotaStorage implements the QuotaStorage interface for Badger
type QuotaStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewQuotaStorage creates a new QuotaStorage instance
func NewQuotaStorage(db *BadgerDB, logger arbor.ILogger) interfaces.QuotaStorage {
	return &QuotaStorage{
		db:     db,
		logger: logger,
	}
}

func (s *QuotaStorage) GetQuota(ctx context.Context, policy, subject string) (int, error) {
	var rec quotaRecord
	if err := s.db.Store().Get(quotaKey(policy, subject), &rec); err != nil {
		if err == badgerhold.ErrNotFound {
			return 0, interfaces.ErrNotFound
		}
		return 0, fmt.Errorf("failed to get quota override: %w", err)
	}
	return rec.Limit, nil
}

func (s *QuotaStorage) SetQuota(ctx context.Context, policy, subject string, limit int) error {
	if limit <= 0 {
		return fmt.Errorf("quota limit must be positive, got %d", limit)
	}
	rec := quotaRecord{
		Key:     quotaKey(policy, subject),
		Policy:  policy,
		Subject: subject,
		Limit:   limit,
	}
	if err := s.db.Store().Upsert(rec.Key, &rec); err != nil {
		return fmt.Errorf("failed to set quota override: %w", err)
	}
	return nil
}

func (s *QuotaStorage) DeleteQuota(ctx context.Context, policy, subject string) error {
	err := s.db.Store().Delete(quotaKey(policy, subject), &quotaRecord{})
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete quota override: %w", err)
	}
	return nil
}
