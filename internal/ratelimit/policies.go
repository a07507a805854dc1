package ratelimit

import (
	"time"

	"github.com/brandlens/brandlens/internal/common"
	"github.com/brandlens/brandlens/internal/interfaces"
)

// Policy names used as quota override namespaces
const (
	PolicyAPI       = "api"
	PolicyScanQuota = "scan_quota"
	PolicyAuth      = "auth"
)

// Policies resolves the configured rate limit policies
type Policies struct {
	API       interfaces.RateLimitPolicy
	ScanQuota interfaces.RateLimitPolicy
	Auth      interfaces.RateLimitPolicy
}

// NewPolicies builds the policy set from configuration, falling back to
// defaults for unparseable windows.
func NewPolicies(cfg *common.RateLimitConfig) Policies {
	return Policies{
		API:       buildPolicy(PolicyAPI, cfg.API, 120, time.Minute, interfaces.FailOpen),
		ScanQuota: buildPolicy(PolicyScanQuota, cfg.ScanQuota, 50, 24*time.Hour, interfaces.FailOpen),
		Auth:      buildPolicy(PolicyAuth, cfg.Auth, 10, 15*time.Minute, interfaces.FailClosed),
	}
}

func buildPolicy(name string, cfg common.RateLimitPolicyConfig, defLimit int, defWindow time.Duration, defMode interfaces.FailMode) interfaces.RateLimitPolicy {
	limit := cfg.Limit
	if limit <= 0 {
		limit = defLimit
	}

	window := common.ParseDurationOr(cfg.Window, defWindow)

	mode := defMode
	switch interfaces.FailMode(cfg.FailMode) {
	case interfaces.FailOpen, interfaces.FailClosed:
		mode = interfaces.FailMode(cfg.FailMode)
	}

	return interfaces.RateLimitPolicy{
		Name:      name,
		KeyPrefix: name,
		Limit:     limit,
		Window:    window,
		FailMode:  mode,
	}
}
