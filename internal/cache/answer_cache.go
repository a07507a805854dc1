package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"

	"github.com/brandlens/brandlens/internal/interfaces"
)

const keyPrefix = "cache:answer:"

// AnswerCache memoizes provider answers in Badger using native TTL entries.
// Every read/write failure of the store degrades to a miss: callers never
// fail because the cache is unhealthy.
type AnswerCache struct {
	db     *badgerdb.DB
	ttl    time.Duration
	logger arbor.ILogger
}

// NewAnswerCache creates an answer cache with the given entry TTL
func NewAnswerCache(db *badgerdb.DB, ttl time.Duration, logger arbor.ILogger) interfaces.AnswerCache {
	return &AnswerCache{
		db:     db,
		ttl:    ttl,
		logger: logger,
	}
}

// NormalizeQuery canonicalizes a query for cache keying: lowercase, with
// runs of whitespace collapsed to single spaces. Idempotent.
func NormalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// CacheKey derives the storage key from provider, normalized query and the
// current UTC calendar day, so entries roll over at midnight UTC regardless
// of TTL.
func CacheKey(provider, query string, now time.Time) string {
	day := now.UTC().Format("2006-01-02")
	sum := sha256.Sum256([]byte(provider + "|" + NormalizeQuery(query) + "|" + day))
	return keyPrefix + hex.EncodeToString(sum[:])
}

func (c *AnswerCache) Get(ctx context.Context, query, provider string) (*interfaces.CacheEntry, error) {
	key := CacheKey(provider, query, time.Now())

	var entry interfaces.CacheEntry
	err := c.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if err != nil {
		if err != badgerdb.ErrKeyNotFound {
			c.logger.Warn().Err(err).Str("provider", provider).Msg("Answer cache read failed, treating as miss")
		}
		return nil, interfaces.ErrCacheMiss
	}

	return &entry, nil
}

func (c *AnswerCache) Set(ctx context.Context, query, provider string, entry *interfaces.CacheEntry) error {
	if entry == nil {
		return fmt.Errorf("cache entry is required")
	}
	if entry.CachedAt.IsZero() {
		entry.CachedAt = time.Now()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	key := CacheKey(provider, query, time.Now())
	err = c.db.Update(func(txn *badgerdb.Txn) error {
		e := badgerdb.NewEntry([]byte(key), data).WithTTL(c.ttl)
		return txn.SetEntry(e)
	})
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

func (c *AnswerCache) Invalidate(ctx context.Context, query, provider string) error {
	key := CacheKey(provider, query, time.Now())
	err := c.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil && err != badgerdb.ErrKeyNotFound {
		return fmt.Errorf("failed to invalidate cache entry: %w", err)
	}
	return nil
}

// ClearAll drops every answer cache entry and returns the count removed
func (c *AnswerCache) ClearAll(ctx context.Context) (int, error) {
	var keys [][]byte
	err := c.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to scan cache entries: %w", err)
	}

	count := 0
	for _, key := range keys {
		err := c.db.Update(func(txn *badgerdb.Txn) error {
			return txn.Delete(key)
		})
		if err != nil {
			c.logger.Warn().Err(err).Str("key", string(key)).Msg("Failed to delete cache entry")
			continue
		}
		count++
	}

	c.logger.Info().Int("count", count).Msg("Answer cache cleared")
	return count, nil
}
