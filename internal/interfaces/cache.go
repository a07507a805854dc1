package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/brandlens/brandlens/internal/models"
)

// ErrCacheMiss is returned when no live entry exists for the key. Store
// failures on read are logged by the implementation and surfaced as misses:
// the cache is a performance optimization, never a correctness dependency.
var ErrCacheMiss = errors.New("cache miss")

// CacheEntry is a memoized provider answer
type CacheEntry struct {
	Content    string            `json:"content"`
	Citations  []models.Citation `json:"citations,omitempty"`
	Model      string            `json:"model"`
	TokenCount int               `json:"token_count"`
	CachedAt   time.Time         `json:"cached_at"`
}

// AnswerCache memoizes provider answers by (provider, normalized query,
// UTC calendar day). Identical normalized queries on the same day never
// re-hit the provider.
type AnswerCache interface {
	Get(ctx context.Context, query, provider string) (*CacheEntry, error)
	Set(ctx context.Context, query, provider string, entry *CacheEntry) error
	Invalidate(ctx context.Context, query, provider string) error
	// ClearAll drops every entry under the cache key prefix
	ClearAll(ctx context.Context) (int, error)
}
