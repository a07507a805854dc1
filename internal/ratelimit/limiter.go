package ratelimit

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"

	"github.com/brandlens/brandlens/internal/interfaces"
)

// Limiter is a fixed-window counter backed by Badger TTL entries. The first
// increment in a window creates the counter with TTL=window; later increments
// bump it while preserving the original expiry, so the window never slides.
type Limiter struct {
	db     *badgerdb.DB
	quotas interfaces.QuotaStorage
	logger arbor.ILogger
}

// NewLimiter creates a rate limiter. quotas may be nil when per-subject
// overrides are not needed.
func NewLimiter(db *badgerdb.DB, quotas interfaces.QuotaStorage, logger arbor.ILogger) interfaces.RateLimiter {
	return &Limiter{
		db:     db,
		quotas: quotas,
		logger: logger,
	}
}

func counterKey(policy interfaces.RateLimitPolicy, subject string) []byte {
	return []byte(fmt.Sprintf("ratelimit:%s:%s", policy.KeyPrefix, subject))
}

// effectiveLimit resolves the limit for a subject, preferring a stored quota
// override over the policy default.
func (l *Limiter) effectiveLimit(ctx context.Context, subject string, policy interfaces.RateLimitPolicy) int {
	if l.quotas == nil {
		return policy.Limit
	}
	override, err := l.quotas.GetQuota(ctx, policy.Name, subject)
	if err != nil {
		if err != interfaces.ErrNotFound {
			l.logger.Warn().Err(err).Str("policy", policy.Name).Str("subject", subject).Msg("Quota lookup failed, using policy default")
		}
		return policy.Limit
	}
	return override
}

func (l *Limiter) Check(ctx context.Context, subject string, policy interfaces.RateLimitPolicy) (interfaces.CheckResult, error) {
	limit := l.effectiveLimit(ctx, subject, policy)

	var current int
	var resetAt time.Time

	err := l.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(counterKey(policy, subject))
		if err != nil {
			return err
		}
		resetAt = time.Unix(int64(item.ExpiresAt()), 0)
		return item.Value(func(val []byte) error {
			current = decodeCount(val)
			return nil
		})
	})
	if err != nil {
		if err == badgerdb.ErrKeyNotFound {
			return interfaces.CheckResult{Allowed: true, Remaining: limit, ResetAt: time.Now().Add(policy.Window)}, nil
		}
		return l.checkOnFailure(policy, limit, err)
	}

	remaining := limit - current
	if remaining < 0 {
		remaining = 0
	}
	return interfaces.CheckResult{Allowed: current < limit, Remaining: remaining, ResetAt: resetAt}, nil
}

// Concurrent increments on one key conflict under Badger's optimistic
// transactions; bounded retries keep every admission counted.
const incrementRetries = 32

func (l *Limiter) Increment(ctx context.Context, subject string, policy interfaces.RateLimitPolicy) (interfaces.IncrementResult, error) {
	limit := l.effectiveLimit(ctx, subject, policy)
	key := counterKey(policy, subject)

	var current int
	var err error
	for attempt := 0; attempt < incrementRetries; attempt++ {
		current = 0
		err = l.incrementTxn(key, policy, &current)
		if err != badgerdb.ErrConflict {
			break
		}
	}
	if err != nil {
		return l.incrementOnFailure(policy, limit, err)
	}

	return interfaces.IncrementResult{Allowed: current <= limit, Current: current, Limit: limit}, nil
}

func (l *Limiter) incrementTxn(key []byte, policy interfaces.RateLimitPolicy, current *int) error {
	return l.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(key)
		if err == badgerdb.ErrKeyNotFound {
			*current = 1
			entry := badgerdb.NewEntry(key, encodeCount(1)).WithTTL(policy.Window)
			return txn.SetEntry(entry)
		}
		if err != nil {
			return err
		}

		if err := item.Value(func(val []byte) error {
			*current = decodeCount(val)
			return nil
		}); err != nil {
			return err
		}
		*current++

		// Preserve the original window expiry
		ttl := time.Until(time.Unix(int64(item.ExpiresAt()), 0))
		if ttl <= 0 {
			ttl = policy.Window
			*current = 1
		}
		entry := badgerdb.NewEntry(key, encodeCount(*current)).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
}

// checkOnFailure applies the policy fail mode when the store is unavailable
func (l *Limiter) checkOnFailure(policy interfaces.RateLimitPolicy, limit int, cause error) (interfaces.CheckResult, error) {
	l.logger.Warn().Err(cause).Str("policy", policy.Name).Str("fail_mode", string(policy.FailMode)).Msg("Rate limit store failure")
	if policy.FailMode == interfaces.FailClosed {
		return interfaces.CheckResult{Allowed: false}, fmt.Errorf("rate limit store unavailable: %w", cause)
	}
	return interfaces.CheckResult{Allowed: true, Remaining: limit, ResetAt: time.Now().Add(policy.Window)}, nil
}

func (l *Limiter) incrementOnFailure(policy interfaces.RateLimitPolicy, limit int, cause error) (interfaces.IncrementResult, error) {
	l.logger.Warn().Err(cause).Str("policy", policy.Name).Str("fail_mode", string(policy.FailMode)).Msg("Rate limit store failure")
	if policy.FailMode == interfaces.FailClosed {
		return interfaces.IncrementResult{Allowed: false, Limit: limit}, fmt.Errorf("rate limit store unavailable: %w", cause)
	}
	return interfaces.IncrementResult{Allowed: true, Limit: limit}, nil
}

func encodeCount(n int) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(n))
	return buf
}

func decodeCount(val []byte) int {
	if len(val) != 8 {
		return 0
	}
	return int(binary.BigEndian.Uint64(val))
}
