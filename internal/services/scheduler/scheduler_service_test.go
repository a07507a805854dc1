package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/brandlens/brandlens/internal/common"
	"github.com/brandlens/brandlens/internal/interfaces"
	"github.com/brandlens/brandlens/internal/models"
)

type stubRequester struct {
	mu       sync.Mutex
	requests []string
}

func (r *stubRequester) RequestScan(ctx context.Context, keywordID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, keywordID)
	return []string{"job-" + keywordID}, nil
}

type stubKeywords struct {
	schedulable []*models.Keyword
}

func (s *stubKeywords) SaveKeyword(ctx context.Context, keyword *models.Keyword) error { return nil }
func (s *stubKeywords) GetKeyword(ctx context.Context, id string) (*models.Keyword, error) {
	return nil, interfaces.ErrNotFound
}
func (s *stubKeywords) ListKeywordsByProject(ctx context.Context, projectID string) ([]*models.Keyword, error) {
	return nil, nil
}
func (s *stubKeywords) ListSchedulable(ctx context.Context) ([]*models.Keyword, error) {
	return s.schedulable, nil
}
func (s *stubKeywords) SetKeywordActive(ctx context.Context, id string, active bool) error {
	return nil
}
func (s *stubKeywords) TouchLastScanned(ctx context.Context, id string, at time.Time) error {
	return nil
}
func (s *stubKeywords) SaveProject(ctx context.Context, project *models.Project) error { return nil }
func (s *stubKeywords) GetProject(ctx context.Context, id string) (*models.Project, error) {
	return nil, interfaces.ErrNotFound
}
func (s *stubKeywords) ListProjects(ctx context.Context) ([]*models.Project, error) {
	return nil, nil
}

func newTestService(t *testing.T, keywords *stubKeywords) (*Service, *stubRequester) {
	t.Helper()
	if keywords == nil {
		keywords = &stubKeywords{}
	}
	requester := &stubRequester{}
	cfg := &common.SchedulerConfig{JitterMaxMinutes: 59}
	svc := NewService(requester, keywords, cfg, arbor.NewLogger())
	return svc, requester
}

func TestScheduleKeywordDaily(t *testing.T) {
	svc, _ := newTestService(t, nil)
	svc.randInt = func(n int) int { return 42 }

	if err := svc.ScheduleKeyword("kw-1", models.FrequencyDaily, []string{"openai"}); err != nil {
		t.Fatalf("ScheduleKeyword failed: %v", err)
	}

	entry, ok := svc.entries["keyword:kw-1"]
	if !ok {
		t.Fatal("expected entry for kw-1")
	}
	if entry.jitterMinute != 42 {
		t.Errorf("expected jitter 42, got %d", entry.jitterMinute)
	}
	if svc.Stats().ScheduledCount != 1 {
		t.Errorf("expected 1 scheduled, got %d", svc.Stats().ScheduledCount)
	}
}

func TestScheduleKeywordWeeklyNextRun(t *testing.T) {
	svc, _ := newTestService(t, nil)
	svc.randInt = func(n int) int { return 17 }

	if err := svc.ScheduleKeyword("kw-weekly", models.FrequencyWeekly, nil); err != nil {
		t.Fatalf("ScheduleKeyword failed: %v", err)
	}
	if err := svc.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer svc.Stop()

	stats := svc.Stats()
	if stats.NextRun == nil {
		t.Fatal("expected a next run time")
	}
	next := *stats.NextRun
	if next.Weekday() != time.Sunday {
		t.Errorf("expected weekly run on Sunday, got %s", next.Weekday())
	}
	if next.Hour() != 0 || next.Minute() != 17 {
		t.Errorf("expected run at 00:17, got %02d:%02d", next.Hour(), next.Minute())
	}
}

func TestScheduleKeywordIdempotent(t *testing.T) {
	svc, _ := newTestService(t, nil)

	jitters := []int{5, 30}
	call := 0
	svc.randInt = func(n int) int {
		j := jitters[call%len(jitters)]
		call++
		return j
	}

	if err := svc.ScheduleKeyword("kw-1", models.FrequencyDaily, nil); err != nil {
		t.Fatalf("first schedule failed: %v", err)
	}
	if err := svc.ScheduleKeyword("kw-1", models.FrequencyDaily, nil); err != nil {
		t.Fatalf("reschedule failed: %v", err)
	}

	if got := svc.Stats().ScheduledCount; got != 1 {
		t.Fatalf("expected 1 entry after reschedule, got %d", got)
	}
	// Rescheduling redraws the jitter offset.
	if svc.entries["keyword:kw-1"].jitterMinute != 30 {
		t.Errorf("expected redrawn jitter 30, got %d", svc.entries["keyword:kw-1"].jitterMinute)
	}
}

func TestScheduleManualKeywordUnschedules(t *testing.T) {
	svc, _ := newTestService(t, nil)

	if err := svc.ScheduleKeyword("kw-1", models.FrequencyDaily, nil); err != nil {
		t.Fatalf("schedule failed: %v", err)
	}
	if err := svc.ScheduleKeyword("kw-1", models.FrequencyManual, nil); err != nil {
		t.Fatalf("manual schedule should be a no-op unschedule: %v", err)
	}
	if got := svc.Stats().ScheduledCount; got != 0 {
		t.Errorf("expected manual keyword removed from schedule, got %d entries", got)
	}
}

func TestScheduleKeywordUnknownFrequency(t *testing.T) {
	svc, _ := newTestService(t, nil)

	if err := svc.ScheduleKeyword("kw-1", models.ScanFrequency("hourly"), nil); err == nil {
		t.Fatal("expected error for unknown frequency")
	}
	if got := svc.Stats().ScheduledCount; got != 0 {
		t.Errorf("expected no entries, got %d", got)
	}
}

func TestUnscheduleUnknownKeyword(t *testing.T) {
	svc, _ := newTestService(t, nil)
	if err := svc.UnscheduleKeyword("missing"); err != nil {
		t.Fatalf("unschedule of unknown keyword should be a no-op: %v", err)
	}
}

func TestSyncAllSchedules(t *testing.T) {
	keywords := &stubKeywords{
		schedulable: []*models.Keyword{
			{ID: "kw-1", Frequency: models.FrequencyDaily, Active: true},
			{ID: "kw-2", Frequency: models.FrequencyWeekly, Active: true},
		},
	}
	svc, _ := newTestService(t, keywords)

	// A stale entry for a keyword no longer schedulable should be dropped.
	if err := svc.ScheduleKeyword("kw-deleted", models.FrequencyDaily, nil); err != nil {
		t.Fatalf("schedule failed: %v", err)
	}

	if err := svc.SyncAllSchedules(context.Background()); err != nil {
		t.Fatalf("SyncAllSchedules failed: %v", err)
	}
	if got := svc.Stats().ScheduledCount; got != 2 {
		t.Fatalf("expected 2 entries after sync, got %d", got)
	}
	if _, ok := svc.entries["keyword:kw-deleted"]; ok {
		t.Error("stale entry should have been removed")
	}

	// A second sync is a no-op.
	if err := svc.SyncAllSchedules(context.Background()); err != nil {
		t.Fatalf("second sync failed: %v", err)
	}
	if got := svc.Stats().ScheduledCount; got != 2 {
		t.Errorf("expected 2 entries after repeat sync, got %d", got)
	}
}

func TestStartStop(t *testing.T) {
	svc, _ := newTestService(t, nil)

	if err := svc.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := svc.Start(); err == nil {
		t.Error("expected error starting twice")
	}
	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := svc.Stop(); err != nil {
		t.Fatalf("repeat Stop should be a no-op: %v", err)
	}
}

func TestFireRequestsScan(t *testing.T) {
	svc, requester := newTestService(t, nil)

	svc.fire("kw-9")

	requester.mu.Lock()
	defer requester.mu.Unlock()
	if len(requester.requests) != 1 || requester.requests[0] != "kw-9" {
		t.Fatalf("expected one request for kw-9, got %v", requester.requests)
	}
}
