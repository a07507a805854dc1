package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/brandlens/brandlens/internal/interfaces"
	"github.com/brandlens/brandlens/internal/models"
)

// KeywordStorage implements the KeywordStorage interface for Badger
type KeywordStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewKeywordStorage creates a new KeywordStorage instance
func NewKeywordStorage(db *BadgerDB, logger arbor.ILogger) interfaces.KeywordStorage {
	return &KeywordStorage{
		db:     db,
		logger: logger,
	}
}

func (s *KeywordStorage) SaveKeyword(ctx context.Context, keyword *models.Keyword) error {
	if keyword.ID == "" {
		return fmt.Errorf("keyword ID is required")
	}
	if err := keyword.Validate(); err != nil {
		return err
	}

	now := time.Now()
	keyword.UpdatedAt = now
	if keyword.CreatedAt.IsZero() {
		keyword.CreatedAt = now
	}

	if err := s.db.Store().Upsert(keyword.ID, keyword); err != nil {
		return fmt.Errorf("failed to save keyword: %w", err)
	}
	return nil
}

func (s *KeywordStorage) GetKeyword(ctx context.Context, id string) (*models.Keyword, error) {
	var keyword models.Keyword
	if err := s.db.Store().Get(id, &keyword); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get keyword: %w", err)
	}
	return &keyword, nil
}

func (s *KeywordStorage) ListKeywordsByProject(ctx context.Context, projectID string) ([]*models.Keyword, error) {
	var keywords []models.Keyword
	query := badgerhold.Where("ProjectID").Eq(projectID).Index("ProjectID").SortBy("CreatedAt").Reverse()
	if err := s.db.Store().Find(&keywords, query); err != nil {
		return nil, fmt.Errorf("failed to list keywords: %w", err)
	}

	result := make([]*models.Keyword, len(keywords))
	for i := range keywords {
		result[i] = &keywords[i]
	}
	return result, nil
}

func (s *KeywordStorage) ListSchedulable(ctx context.Context) ([]*models.Keyword, error) {
	var keywords []models.Keyword
	query := badgerhold.Where("Active").Eq(true).
		And("Frequency").In(models.FrequencyDaily, models.FrequencyWeekly)
	if err := s.db.Store().Find(&keywords, query); err != nil {
		return nil, fmt.Errorf("failed to list schedulable keywords: %w", err)
	}

	result := make([]*models.Keyword, len(keywords))
	for i := range keywords {
		result[i] = &keywords[i]
	}
	return result, nil
}

func (s *KeywordStorage) SetKeywordActive(ctx context.Context, id string, active bool) error {
	var keyword models.Keyword
	if err := s.db.Store().Get(id, &keyword); err != nil {
		if err == badgerhold.ErrNotFound {
			return interfaces.ErrNotFound
		}
		return fmt.Errorf("failed to get keyword: %w", err)
	}

	keyword.Active = active
	keyword.UpdatedAt = time.Now()

	if err := s.db.Store().Update(id, &keyword); err != nil {
		return fmt.Errorf("failed to update keyword active flag: %w", err)
	}
	return nil
}

func (s *KeywordStorage) TouchLastScanned(ctx context.Context, id string, at time.Time) error {
	var keyword models.Keyword
	if err := s.db.Store().Get(id, &keyword); err != nil {
		if err == badgerhold.ErrNotFound {
			return interfaces.ErrNotFound
		}
		return fmt.Errorf("failed to get keyword: %w", err)
	}

	keyword.LastScannedAt = &at
	keyword.UpdatedAt = time.Now()

	if err := s.db.Store().Update(id, &keyword); err != nil {
		return fmt.Errorf("failed to update last scanned timestamp: %w", err)
	}
	return nil
}

func (s *KeywordStorage) SaveProject(ctx context.Context, project *models.Project) error {
	if project.ID == "" {
		return fmt.Errorf("project ID is required")
	}

	now := time.Now()
	project.UpdatedAt = now
	if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}

	if err := s.db.Store().Upsert(project.ID, project); err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}
	return nil
}

func (s *KeywordStorage) GetProject(ctx context.Context, id string) (*models.Project, error) {
	var project models.Project
	if err := s.db.Store().Get(id, &project); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &project, nil
}

func (s *KeywordStorage) ListProjects(ctx context.Context) ([]*models.Project, error) {
	var projects []models.Project
	if err := s.db.Store().Find(&projects, badgerhold.Where("ID").Ne("").SortBy("CreatedAt")); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	result := make([]*models.Project, len(projects))
	for i := range projects {
		result[i] = &projects[i]
	}
	return result, nil
}
