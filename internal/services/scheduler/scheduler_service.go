package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/brandlens/brandlens/internal/common"
	"github.com/brandlens/brandlens/internal/interfaces"
	"github.com/brandlens/brandlens/internal/models"
)

// keywordEntry tracks one scheduled keyword probe
type keywordEntry struct {
	keywordID    string
	frequency    models.ScanFrequency
	jitterMinute int
	cronID       cron.EntryID
}

// Service implements SchedulerService on top of robfig/cron. Each active
// daily or weekly keyword gets exactly one cron entry, offset by a jitter
// minute drawn at schedule time so keywords sharing a frequency do not fire
// as a synchronized burst at midnight.
type Service struct {
	scanner        interfaces.ScanRequester
	keywords       interfaces.KeywordStorage
	cron           *cron.Cron
	logger         arbor.ILogger
	jitterMax      int
	randInt        func(n int) int // injectable for tests
	mu             sync.Mutex
	entries        map[string]*keywordEntry
	running        bool
	requestTimeout time.Duration
}

// NewService creates a scheduler. The config's JitterMaxMinutes is the
// inclusive upper bound in minutes for the per-keyword offset; zero disables
// jitter entirely.
func NewService(scanner interfaces.ScanRequester, keywords interfaces.KeywordStorage, cfg *common.SchedulerConfig, logger arbor.ILogger) *Service {
	jitterMax := 59
	if cfg != nil && cfg.JitterMaxMinutes >= 0 {
		jitterMax = cfg.JitterMaxMinutes
	}
	if jitterMax > 59 {
		jitterMax = 59
	}
	return &Service{
		scanner:        scanner,
		keywords:       keywords,
		cron:           cron.New(),
		logger:         logger,
		jitterMax:      jitterMax,
		randInt:        rand.Intn,
		entries:        make(map[string]*keywordEntry),
		requestTimeout: 2 * time.Minute,
	}
}

// Start begins firing scheduled entries.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	s.cron.Start()
	s.running = true
	s.logger.Info().Int("entries", len(s.entries)).Msg("Scheduler started")
	return nil
}

// Stop halts the scheduler and waits for in-flight fires to finish. Entries
// remain registered and resume on the next Start.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

// ScheduleKeyword installs (or reinstalls) the recurring probe for a keyword.
// Manual keywords are removed from the schedule rather than registered.
// Rescheduling an already-scheduled keyword redraws its jitter offset.
func (s *Service) ScheduleKeyword(keywordID string, frequency models.ScanFrequency, engines []string) error {
	if keywordID == "" {
		return fmt.Errorf("keyword ID is required")
	}

	if frequency == models.FrequencyManual {
		return s.UnscheduleKeyword(keywordID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	jitter := 0
	if s.jitterMax > 0 {
		jitter = s.randInt(s.jitterMax + 1)
	}

	spec, err := cronSpec(frequency, jitter)
	if err != nil {
		return err
	}

	// Replace any existing entry so each keyword holds at most one.
	if existing, ok := s.entries[entryKey(keywordID)]; ok {
		s.cron.Remove(existing.cronID)
	}

	id := keywordID
	cronID, err := s.cron.AddFunc(spec, func() {
		s.fire(id)
	})
	if err != nil {
		return fmt.Errorf("failed to register schedule for keyword %s: %w", keywordID, err)
	}

	s.entries[entryKey(keywordID)] = &keywordEntry{
		keywordID:    keywordID,
		frequency:    frequency,
		jitterMinute: jitter,
		cronID:       cronID,
	}

	s.logger.Debug().
		Str("keyword_id", keywordID).
		Str("frequency", string(frequency)).
		Int("jitter_minute", jitter).
		Strs("engines", engines).
		Msg("Keyword scheduled")
	return nil
}

// UnscheduleKeyword removes the keyword's entry. Unknown keywords are a no-op.
func (s *Service) UnscheduleKeyword(keywordID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[entryKey(keywordID)]
	if !ok {
		return nil
	}
	s.cron.Remove(entry.cronID)
	delete(s.entries, entryKey(keywordID))
	s.logger.Debug().Str("keyword_id", keywordID).Msg("Keyword unscheduled")
	return nil
}

// SyncAllSchedules rebuilds the schedule from persisted keyword state. Stale
// entries for keywords that are no longer schedulable are dropped. This is
// the restart recovery path and is safe to call repeatedly.
func (s *Service) SyncAllSchedules(ctx context.Context) error {
	keywords, err := s.keywords.ListSchedulable(ctx)
	if err != nil {
		return fmt.Errorf("failed to list schedulable keywords: %w", err)
	}

	wanted := make(map[string]bool, len(keywords))
	for _, kw := range keywords {
		wanted[entryKey(kw.ID)] = true
		if err := s.ScheduleKeyword(kw.ID, kw.Frequency, kw.Engines); err != nil {
			s.logger.Warn().Err(err).Str("keyword_id", kw.ID).Msg("Failed to schedule keyword during sync")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, entry := range s.entries {
		if !wanted[key] {
			s.cron.Remove(entry.cronID)
			delete(s.entries, key)
			s.logger.Debug().Str("keyword_id", entry.keywordID).Msg("Removed stale schedule entry")
		}
	}

	s.logger.Info().Int("scheduled", len(s.entries)).Msg("Schedules synchronized")
	return nil
}

// Stats reports the current schedule size and the soonest upcoming run.
func (s *Service) Stats() interfaces.SchedulerStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := interfaces.SchedulerStats{ScheduledCount: len(s.entries)}
	for _, entry := range s.entries {
		next := s.cron.Entry(entry.cronID).Next
		if next.IsZero() {
			continue
		}
		if stats.NextRun == nil || next.Before(*stats.NextRun) {
			n := next
			stats.NextRun = &n
		}
	}
	return stats
}

func (s *Service) fire(keywordID string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.requestTimeout)
	defer cancel()

	jobIDs, err := s.scanner.RequestScan(ctx, keywordID)
	if err != nil {
		s.logger.Warn().Err(err).Str("keyword_id", keywordID).Msg("Scheduled scan request failed")
		return
	}
	s.logger.Info().
		Str("keyword_id", keywordID).
		Int("jobs", len(jobIDs)).
		Msg("Scheduled scan enqueued")
}

func entryKey(keywordID string) string {
	return "keyword:" + keywordID
}

// cronSpec maps a scan frequency and jitter minute to a cron expression.
// Daily keywords fire at 00:<jitter> every day, weekly on Sunday.
func cronSpec(frequency models.ScanFrequency, jitterMinute int) (string, error) {
	switch frequency {
	case models.FrequencyDaily:
		return fmt.Sprintf("%d 0 * * *", jitterMinute), nil
	case models.FrequencyWeekly:
		return fmt.Sprintf("%d 0 * * 0", jitterMinute), nil
	default:
		return "", fmt.Errorf("frequency %q is not schedulable", frequency)
	}
}
