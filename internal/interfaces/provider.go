package interfaces

import (
	"context"

	"github.com/brandlens/brandlens/internal/models"
)

// Answer is the uniform result returned by every answer engine adapter
type Answer struct {
	Content    string
	Citations  []models.Citation
	Model      string
	TokenCount int
	LatencyMS  int64
}

// SearchProvider is the uniform interface over external AI answer engines.
// Upstream failures propagate as typed provider errors so the scan executor
// can distinguish retryable from fatal failures.
type SearchProvider interface {
	// Engine returns the engine identifier this adapter serves
	Engine() string
	Search(ctx context.Context, query string) (*Answer, error)
}

// ProviderFactory selects a concrete engine adapter by identifier
type ProviderFactory interface {
	Provider(engine string) (SearchProvider, error)
	Engines() []string
}
