package interfaces

import (
	"context"
	"time"
)

// FailMode decides what a limiter does when its backing store fails
type FailMode string

const (
	// FailOpen allows the request on store failure (availability first)
	FailOpen FailMode = "open"
	// FailClosed denies the request on store failure (safety first)
	FailClosed FailMode = "closed"
)

// RateLimitPolicy is a named fixed-window rule. A burst at a window boundary
// can momentarily admit close to 2x the nominal rate; that trade-off is part
// of the contract and covered by tests.
type RateLimitPolicy struct {
	Name      string
	KeyPrefix string
	Limit     int
	Window    time.Duration
	FailMode  FailMode
}

// CheckResult is the read-only view of a window
type CheckResult struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// IncrementResult reports the state after a mutating increment
type IncrementResult struct {
	Allowed bool
	Current int
	Limit   int
}

// RateLimiter implements fixed-window counting per (policy, subject).
// The first increment in a window sets the window TTL; subsequent increments
// bump the counter without touching the expiry.
type RateLimiter interface {
	Check(ctx context.Context, subject string, policy RateLimitPolicy) (CheckResult, error)
	Increment(ctx context.Context, subject string, policy RateLimitPolicy) (IncrementResult, error)
}
