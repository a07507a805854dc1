package interfaces

import (
	"context"
	"time"

	"github.com/brandlens/brandlens/internal/models"
)

// SchedulerStats summarizes the live schedule
type SchedulerStats struct {
	ScheduledCount int        `json:"scheduled_count"`
	NextRun        *time.Time `json:"next_run,omitempty"`
}

// SchedulerService maintains at most one recurring probe job per active
// keyword, with a per-keyword jitter offset to avoid synchronized bursts.
type SchedulerService interface {
	Start() error
	Stop() error
	// ScheduleKeyword (re)installs the recurring job for a keyword. Manual
	// keywords are unscheduled and never auto-fire. Unknown frequencies are
	// rejected. Rescheduling redraws the jitter offset.
	ScheduleKeyword(keywordID string, frequency models.ScanFrequency, engines []string) error
	UnscheduleKeyword(keywordID string) error
	// SyncAllSchedules reconciles the in-memory schedule with persisted
	// keyword state. Safe to call repeatedly; it is the restart recovery path.
	SyncAllSchedules(ctx context.Context) error
	Stats() SchedulerStats
}

// ScanRequester enqueues scan work; implemented by the scan service and
// consumed by the scheduler and HTTP layer.
type ScanRequester interface {
	// RequestScan creates pending scan jobs for every engine of the keyword
	// and enqueues them with the configured inter-engine stagger. Returns the
	// created job IDs.
	RequestScan(ctx context.Context, keywordID string) ([]string, error)
}
