package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/brandlens/brandlens/internal/interfaces"
	"github.com/brandlens/brandlens/internal/models"
)

type stubScanStorage struct {
	results []*models.ScanResult
	since   time.Time
}

func (s *stubScanStorage) SaveJob(ctx context.Context, job *models.ScanJob) error { return nil }
func (s *stubScanStorage) GetJob(ctx context.Context, id string) (*models.ScanJob, error) {
	return nil, interfaces.ErrNotFound
}
func (s *stubScanStorage) ListJobs(ctx context.Context, opts *interfaces.ScanJobListOptions) ([]*models.ScanJob, error) {
	return nil, nil
}
func (s *stubScanStorage) UpdateJobStatus(ctx context.Context, id string, status models.ScanJobStatus, errorMsg string) error {
	return nil
}
func (s *stubScanStorage) MarkJobProcessing(ctx context.Context, id string, startedAt time.Time) error {
	return nil
}
func (s *stubScanStorage) CompleteJob(ctx context.Context, id string, latencyMS int64, completedAt time.Time) error {
	return nil
}
func (s *stubScanStorage) MarkProcessingJobsFailed(ctx context.Context, reason string) (int, error) {
	return 0, nil
}
func (s *stubScanStorage) CountJobsByStatus(ctx context.Context, status models.ScanJobStatus) (int, error) {
	return 0, nil
}
func (s *stubScanStorage) SaveResult(ctx context.Context, result *models.ScanResult) error {
	return nil
}
func (s *stubScanStorage) GetResult(ctx context.Context, id string) (*models.ScanResult, error) {
	return nil, interfaces.ErrNotFound
}
func (s *stubScanStorage) GetResultByJob(ctx context.Context, jobID string) (*models.ScanResult, error) {
	return nil, interfaces.ErrNotFound
}
func (s *stubScanStorage) ApplyEvaluation(ctx context.Context, resultID string, eval *models.Evaluation, at time.Time) error {
	return nil
}
func (s *stubScanStorage) ListResultsByProject(ctx context.Context, projectID string, since time.Time) ([]*models.ScanResult, error) {
	s.since = since
	var out []*models.ScanResult
	for _, r := range s.results {
		if r.ProjectID == projectID && !r.CreatedAt.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

// fixedNow pins "today" for deterministic bucketing
var fixedNow = time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

func newTestAggregator(results []*models.ScanResult) (*Aggregator, *stubScanStorage) {
	storage := &stubScanStorage{results: results}
	agg := NewAggregator(storage, arbor.NewLogger())
	agg.now = func() time.Time { return fixedNow }
	return agg, storage
}

func scored(projectID, engine string, createdAt time.Time, visible bool, sentiment float64, recType string) *models.ScanResult {
	now := createdAt
	return &models.ScanResult{
		ID:                 "res-" + createdAt.Format("150405.000000000"),
		ProjectID:          projectID,
		Engine:             engine,
		CreatedAt:          createdAt,
		SentimentScore:     &sentiment,
		BrandVisible:       &visible,
		RecommendationType: &recType,
		EvaluatedAt:        &now,
	}
}

func unscored(projectID, engine string, createdAt time.Time) *models.ScanResult {
	return &models.ScanResult{
		ID:        "raw-" + createdAt.Format("150405.000000000"),
		ProjectID: projectID,
		Engine:    engine,
		CreatedAt: createdAt,
	}
}

func TestProjectSummaryVisibilityRate(t *testing.T) {
	// 10 results over 3 days, 6 visible: rate must land on exactly 60.
	var results []*models.ScanResult
	for i := 0; i < 10; i++ {
		day := fixedNow.AddDate(0, 0, -(i % 3))
		visible := i < 6
		recType := string(models.RecommendationAbsent)
		if visible {
			recType = string(models.RecommendationDirect)
		}
		results = append(results, scored("proj-1", "openai", day, visible, 0.5, recType))
	}
	agg, _ := newTestAggregator(results)

	m, err := agg.ProjectSummary(context.Background(), "proj-1", 7)
	if err != nil {
		t.Fatalf("ProjectSummary failed: %v", err)
	}
	if m.Summary.TotalScans != 10 || m.Summary.VisibleScans != 6 {
		t.Errorf("expected 6/10 visible, got %d/%d", m.Summary.VisibleScans, m.Summary.TotalScans)
	}
	if m.Summary.VisibilityRate != 60 {
		t.Errorf("expected visibility rate 60, got %d", m.Summary.VisibilityRate)
	}

	sum := 0
	for _, count := range m.ByType {
		sum += count
	}
	if sum != 10 {
		t.Errorf("expected histogram to sum to 10, got %d", sum)
	}
	if m.ByType[string(models.RecommendationDirect)] != 6 {
		t.Errorf("expected 6 direct recommendations, got %d", m.ByType[string(models.RecommendationDirect)])
	}
}

func TestProjectSummaryEmpty(t *testing.T) {
	agg, _ := newTestAggregator(nil)

	m, err := agg.ProjectSummary(context.Background(), "proj-1", 7)
	if err != nil {
		t.Fatalf("ProjectSummary failed: %v", err)
	}
	if m.Summary.TotalScans != 0 || m.Summary.VisibilityRate != 0 {
		t.Errorf("expected zero totals, got %+v", m.Summary)
	}
	if m.Summary.AvgSentiment != nil {
		t.Error("expected nil sentiment with no scored results")
	}
	if len(m.Timeline) != 7 {
		t.Fatalf("expected 7 timeline buckets regardless of sparsity, got %d", len(m.Timeline))
	}
	if len(m.ByType) != 4 {
		t.Errorf("expected all 4 histogram categories present, got %d", len(m.ByType))
	}
}

func TestProjectSummaryRounding(t *testing.T) {
	// 1 of 3 visible = 33.33 -> 33; 2 of 3 = 66.67 -> 67; half cases round
	// away from zero: 1 of 8 = 12.5 -> 13.
	cases := []struct {
		name    string
		visible int
		total   int
		want    int
	}{
		{"one third", 1, 3, 33},
		{"two thirds", 2, 3, 67},
		{"exact half step", 1, 8, 13},
		{"all visible", 4, 4, 100},
		{"none visible", 0, 5, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var results []*models.ScanResult
			for i := 0; i < tc.total; i++ {
				results = append(results, scored("proj-1", "openai",
					fixedNow.Add(time.Duration(i)*time.Minute), i < tc.visible, 0, string(models.RecommendationNeutral)))
			}
			agg, _ := newTestAggregator(results)
			m, err := agg.ProjectSummary(context.Background(), "proj-1", 7)
			if err != nil {
				t.Fatalf("ProjectSummary failed: %v", err)
			}
			if m.Summary.VisibilityRate != tc.want {
				t.Errorf("expected rate %d, got %d", tc.want, m.Summary.VisibilityRate)
			}
		})
	}
}

func TestProjectSummarySentiment(t *testing.T) {
	results := []*models.ScanResult{
		scored("proj-1", "openai", fixedNow, true, 0.8, string(models.RecommendationDirect)),
		scored("proj-1", "openai", fixedNow, true, 0.435, string(models.RecommendationDirect)),
		// Unscored result counts toward totals but not sentiment.
		unscored("proj-1", "gemini", fixedNow),
	}
	agg, _ := newTestAggregator(results)

	m, err := agg.ProjectSummary(context.Background(), "proj-1", 7)
	if err != nil {
		t.Fatalf("ProjectSummary failed: %v", err)
	}
	if m.Summary.TotalScans != 3 {
		t.Errorf("expected unscored result in total, got %d", m.Summary.TotalScans)
	}
	if m.Summary.AvgSentiment == nil {
		t.Fatal("expected sentiment mean")
	}
	// (0.8 + 0.435) / 2 = 0.6175 -> 0.62
	if *m.Summary.AvgSentiment != 0.62 {
		t.Errorf("expected avg sentiment 0.62, got %v", *m.Summary.AvgSentiment)
	}
	// Unscored results land in the absent bucket.
	if m.ByType[string(models.RecommendationAbsent)] != 1 {
		t.Errorf("expected 1 absent, got %d", m.ByType[string(models.RecommendationAbsent)])
	}
}

func TestProjectSummaryByEngine(t *testing.T) {
	results := []*models.ScanResult{
		scored("proj-1", "openai", fixedNow, true, 0.5, string(models.RecommendationDirect)),
		scored("proj-1", "openai", fixedNow, false, -0.2, string(models.RecommendationAbsent)),
		scored("proj-1", "gemini", fixedNow, true, 0.1, string(models.RecommendationNeutral)),
	}
	agg, _ := newTestAggregator(results)

	m, err := agg.ProjectSummary(context.Background(), "proj-1", 7)
	if err != nil {
		t.Fatalf("ProjectSummary failed: %v", err)
	}
	if len(m.ByEngine) != 2 {
		t.Fatalf("expected 2 engines, got %d", len(m.ByEngine))
	}
	for _, b := range m.ByEngine {
		recomputed := percent(b.Visible, b.Total)
		if b.Rate != recomputed {
			t.Errorf("engine %s: rate %d does not match visible/total %d", b.Engine, b.Rate, recomputed)
		}
		switch b.Engine {
		case "openai":
			if b.Total != 2 || b.Visible != 1 || b.Rate != 50 {
				t.Errorf("openai breakdown wrong: %+v", b)
			}
		case "gemini":
			if b.Total != 1 || b.Visible != 1 || b.Rate != 100 {
				t.Errorf("gemini breakdown wrong: %+v", b)
			}
		}
	}
}

func TestProjectSummaryTimeline(t *testing.T) {
	twoDaysAgo := fixedNow.AddDate(0, 0, -2)
	results := []*models.ScanResult{
		scored("proj-1", "openai", fixedNow, true, 0.4, string(models.RecommendationDirect)),
		scored("proj-1", "openai", fixedNow.Add(-time.Hour), false, -0.4, string(models.RecommendationAbsent)),
		scored("proj-1", "gemini", twoDaysAgo, true, 1.0, string(models.RecommendationDirect)),
	}
	agg, _ := newTestAggregator(results)

	m, err := agg.ProjectSummary(context.Background(), "proj-1", 7)
	if err != nil {
		t.Fatalf("ProjectSummary failed: %v", err)
	}
	if len(m.Timeline) != 7 {
		t.Fatalf("expected exactly 7 buckets, got %d", len(m.Timeline))
	}

	// Oldest bucket first, today last.
	first := m.Timeline[0]
	if first.Date != fixedNow.AddDate(0, 0, -6).Format("2006-01-02") {
		t.Errorf("expected first bucket 6 days back, got %s", first.Date)
	}
	last := m.Timeline[6]
	if last.Date != fixedNow.Format("2006-01-02") {
		t.Errorf("expected last bucket today, got %s", last.Date)
	}
	if last.Scans != 2 || last.Visible != 1 {
		t.Errorf("expected 2 scans / 1 visible today, got %d/%d", last.Scans, last.Visible)
	}
	if last.AvgSentiment == nil || *last.AvgSentiment != 0.0 {
		t.Errorf("expected today's sentiment 0.0, got %v", last.AvgSentiment)
	}

	bucket := m.Timeline[4] // two days ago
	if bucket.Scans != 1 || bucket.Visible != 1 {
		t.Errorf("expected 1/1 two days ago, got %d/%d", bucket.Scans, bucket.Visible)
	}

	// Empty days report nil sentiment, not zero.
	empty := m.Timeline[1]
	if empty.Scans != 0 {
		t.Errorf("expected empty bucket, got %d scans", empty.Scans)
	}
	if empty.AvgSentiment != nil {
		t.Error("expected nil sentiment for empty bucket")
	}
}

func TestProjectSummaryWindow(t *testing.T) {
	agg, storage := newTestAggregator(nil)

	if _, err := agg.ProjectSummary(context.Background(), "proj-1", 3); err != nil {
		t.Fatalf("ProjectSummary failed: %v", err)
	}
	// days=3 means today plus the two prior UTC days.
	want := time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC)
	if !storage.since.Equal(want) {
		t.Errorf("expected since %v, got %v", want, storage.since)
	}
}

func TestProjectSummaryRequiresProject(t *testing.T) {
	agg, _ := newTestAggregator(nil)
	if _, err := agg.ProjectSummary(context.Background(), "", 7); err == nil {
		t.Fatal("expected error for empty project ID")
	}
}
