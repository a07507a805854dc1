package badger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/arbor"

	"github.com/brandlens/brandlens/internal/common"
	"github.com/brandlens/brandlens/internal/interfaces"
	"github.com/brandlens/brandlens/internal/models"
)

// KeywordDefinitionFile is the TOML schema for a seed file: one project
// plus the keywords it tracks.
type KeywordDefinitionFile struct {
	Project struct {
		ID          string `toml:"id"`
		Name        string `toml:"name"`
		BrandName   string `toml:"brand_name"`
		BrandDomain string `toml:"brand_domain"`
	} `toml:"project"`
	Competitors []struct {
		Name    string `toml:"name"`
		Domain  string `toml:"domain"`
		Context string `toml:"context"`
	} `toml:"competitors"`
	Keywords []struct {
		ID        string   `toml:"id"`
		Text      string   `toml:"text"`
		Intent    string   `toml:"intent"`
		Frequency string   `toml:"frequency"`
		Engines   []string `toml:"engines"`
		Active    *bool    `toml:"active"`
	} `toml:"keywords"`
}

// LoadKeywordsFromFiles loads project and keyword definitions from TOML files
// in the specified directory. Existing records with the same ID are updated,
// so the seed files act as declarative state on every startup.
func LoadKeywordsFromFiles(ctx context.Context, storage interfaces.KeywordStorage, definitionsDir string, logger arbor.ILogger) error {
	if _, err := os.Stat(definitionsDir); os.IsNotExist(err) {
		logger.Debug().Str("dir", definitionsDir).Msg("Keyword definitions directory does not exist, skipping")
		return nil
	}

	logger.Info().Str("dir", definitionsDir).Msg("Loading keyword definitions from files")

	entries, err := os.ReadDir(definitionsDir)
	if err != nil {
		return fmt.Errorf("failed to read keyword definitions directory: %w", err)
	}

	loadedCount := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".toml" {
			continue
		}

		filePath := filepath.Join(definitionsDir, entry.Name())

		tomlBytes, err := os.ReadFile(filePath)
		if err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to read keyword definition file")
			continue
		}

		var defFile KeywordDefinitionFile
		if err := toml.Unmarshal(tomlBytes, &defFile); err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to parse keyword definition TOML")
			continue
		}

		count, err := applyDefinitionFile(ctx, storage, &defFile, logger)
		if err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to apply keyword definition file")
			continue
		}

		logger.Info().Str("file", entry.Name()).Str("project", defFile.Project.Name).Int("keywords", count).Msg("Keyword definitions loaded from file")
		loadedCount += count
	}

	if loadedCount > 0 {
		logger.Info().Int("count", loadedCount).Msg("Keyword definitions loaded from files")
	} else {
		logger.Debug().Msg("No keyword definitions loaded from files")
	}

	return nil
}

func applyDefinitionFile(ctx context.Context, storage interfaces.KeywordStorage, defFile *KeywordDefinitionFile, logger arbor.ILogger) (int, error) {
	if defFile.Project.Name == "" {
		return 0, fmt.Errorf("project name is required")
	}
	if defFile.Project.BrandName == "" {
		return 0, fmt.Errorf("project brand_name is required")
	}

	projectID := defFile.Project.ID
	if projectID == "" {
		projectID = common.NewProjectID()
	}

	now := time.Now()
	project := &models.Project{
		ID:          projectID,
		Name:        defFile.Project.Name,
		BrandName:   defFile.Project.BrandName,
		BrandDomain: defFile.Project.BrandDomain,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, c := range defFile.Competitors {
		project.Competitors = append(project.Competitors, models.Competitor{
			Name:    c.Name,
			Domain:  c.Domain,
			Context: c.Context,
		})
	}

	// Preserve the original creation time on update
	if existing, err := storage.GetProject(ctx, projectID); err == nil {
		project.CreatedAt = existing.CreatedAt
	}

	if err := storage.SaveProject(ctx, project); err != nil {
		return 0, fmt.Errorf("failed to save project: %w", err)
	}

	count := 0
	for _, kw := range defFile.Keywords {
		keywordID := kw.ID
		if keywordID == "" {
			keywordID = common.NewKeywordID()
		}

		active := true
		if kw.Active != nil {
			active = *kw.Active
		}

		keyword := &models.Keyword{
			ID:        keywordID,
			ProjectID: projectID,
			Text:      kw.Text,
			Intent:    models.IntentCategory(kw.Intent),
			Frequency: models.ScanFrequency(kw.Frequency),
			Engines:   kw.Engines,
			Active:    active,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := keyword.Validate(); err != nil {
			logger.Warn().Err(err).Str("keyword", kw.Text).Msg("Skipping invalid keyword definition")
			continue
		}

		if existing, err := storage.GetKeyword(ctx, keywordID); err == nil {
			keyword.CreatedAt = existing.CreatedAt
			keyword.LastScannedAt = existing.LastScannedAt
		}

		if err := storage.SaveKeyword(ctx, keyword); err != nil {
			logger.Warn().Err(err).Str("keyword", kw.Text).Msg("Failed to save keyword definition")
			continue
		}
		count++
	}

	return count, nil
}
