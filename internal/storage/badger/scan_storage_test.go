package badger

import (
	"context"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/brandlens/brandlens/internal/interfaces"
	"github.com/brandlens/brandlens/internal/models"
)

func newTestDB(t *testing.T) *BadgerDB {
	t.Helper()

	tmpDir := t.TempDir()

	options := badgerhold.DefaultOptions
	options.Dir = tmpDir
	options.ValueDir = tmpDir
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	return &BadgerDB{store: store, logger: arbor.NewLogger()}
}

func TestScanJobLifecycle(t *testing.T) {
	db := newTestDB(t)
	storage := NewScanStorage(db, arbor.NewLogger())
	ctx := context.Background()

	job := &models.ScanJob{
		ID:        "scan-1",
		KeywordID: "kw-1",
		ProjectID: "prj-1",
		Engine:    "openai",
	}
	if err := storage.SaveJob(ctx, job); err != nil {
		t.Fatalf("Failed to save job: %v", err)
	}

	loaded, err := storage.GetJob(ctx, "scan-1")
	if err != nil {
		t.Fatalf("Failed to get job: %v", err)
	}
	if loaded.Status != models.ScanStatusPending {
		t.Errorf("Expected new job to default to pending, got %s", loaded.Status)
	}

	started := time.Now()
	if err := storage.MarkJobProcessing(ctx, "scan-1", started); err != nil {
		t.Fatalf("Failed to mark processing: %v", err)
	}

	if err := storage.CompleteJob(ctx, "scan-1", 1234, time.Now()); err != nil {
		t.Fatalf("Failed to complete job: %v", err)
	}

	loaded, err = storage.GetJob(ctx, "scan-1")
	if err != nil {
		t.Fatalf("Failed to get job: %v", err)
	}
	if loaded.Status != models.ScanStatusCompleted {
		t.Errorf("Expected completed, got %s", loaded.Status)
	}
	if loaded.LatencyMS != 1234 {
		t.Errorf("Expected latency 1234, got %d", loaded.LatencyMS)
	}
	if loaded.CompletedAt == nil {
		t.Error("Expected completed_at to be set")
	}
}

func TestTerminalJobCannotTransition(t *testing.T) {
	db := newTestDB(t)
	storage := NewScanStorage(db, arbor.NewLogger())
	ctx := context.Background()

	job := &models.ScanJob{
		ID:        "scan-term",
		KeywordID: "kw-1",
		ProjectID: "prj-1",
		Engine:    "gemini",
		Status:    models.ScanStatusFailed,
	}
	if err := storage.SaveJob(ctx, job); err != nil {
		t.Fatalf("Failed to save job: %v", err)
	}

	if err := storage.UpdateJobStatus(ctx, "scan-term", models.ScanStatusPending, ""); err == nil {
		t.Error("Expected transition from failed to pending to be rejected")
	}
	if err := storage.MarkJobProcessing(ctx, "scan-term", time.Now()); err == nil {
		t.Error("Expected MarkJobProcessing on terminal job to be rejected")
	}

	loaded, err := storage.GetJob(ctx, "scan-term")
	if err != nil {
		t.Fatalf("Failed to get job: %v", err)
	}
	if loaded.Status != models.ScanStatusFailed {
		t.Errorf("Expected status to stay failed, got %s", loaded.Status)
	}
}

func TestCompleteRequiresProcessing(t *testing.T) {
	db := newTestDB(t)
	storage := NewScanStorage(db, arbor.NewLogger())
	ctx := context.Background()

	job := &models.ScanJob{
		ID:        "scan-pending",
		KeywordID: "kw-1",
		ProjectID: "prj-1",
		Engine:    "claude",
	}
	if err := storage.SaveJob(ctx, job); err != nil {
		t.Fatalf("Failed to save job: %v", err)
	}

	if err := storage.CompleteJob(ctx, "scan-pending", 100, time.Now()); err == nil {
		t.Error("Expected completing a pending job to fail")
	}
}

func TestMarkProcessingJobsFailed(t *testing.T) {
	db := newTestDB(t)
	storage := NewScanStorage(db, arbor.NewLogger())
	ctx := context.Background()

	statuses := map[string]models.ScanJobStatus{
		"scan-a": models.ScanStatusProcessing,
		"scan-b": models.ScanStatusProcessing,
		"scan-c": models.ScanStatusPending,
		"scan-d": models.ScanStatusCompleted,
	}
	for id, status := range statuses {
		job := &models.ScanJob{ID: id, KeywordID: "kw-1", ProjectID: "prj-1", Engine: "openai", Status: status}
		if err := storage.SaveJob(ctx, job); err != nil {
			t.Fatalf("Failed to save job %s: %v", id, err)
		}
	}

	count, err := storage.MarkProcessingJobsFailed(ctx, "server restarted")
	if err != nil {
		t.Fatalf("Failed to reconcile: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 jobs reconciled, got %d", count)
	}

	for _, id := range []string{"scan-a", "scan-b"} {
		job, err := storage.GetJob(ctx, id)
		if err != nil {
			t.Fatalf("Failed to get job %s: %v", id, err)
		}
		if job.Status != models.ScanStatusFailed {
			t.Errorf("Expected %s to be failed, got %s", id, job.Status)
		}
		if job.Error != "server restarted" {
			t.Errorf("Expected reconciliation reason on %s, got %q", id, job.Error)
		}
	}

	pending, err := storage.GetJob(ctx, "scan-c")
	if err != nil {
		t.Fatal(err)
	}
	if pending.Status != models.ScanStatusPending {
		t.Errorf("Expected pending job untouched, got %s", pending.Status)
	}
}

func TestSaveResultEnforcesOnePerJob(t *testing.T) {
	db := newTestDB(t)
	storage := NewScanStorage(db, arbor.NewLogger())
	ctx := context.Background()

	first := &models.ScanResult{
		ID:        "res-1",
		JobID:     "scan-1",
		KeywordID: "kw-1",
		ProjectID: "prj-1",
		Engine:    "openai",
		RawText:   "answer text",
	}
	if err := storage.SaveResult(ctx, first); err != nil {
		t.Fatalf("Failed to save result: %v", err)
	}

	dup := &models.ScanResult{
		ID:        "res-2",
		JobID:     "scan-1",
		KeywordID: "kw-1",
		ProjectID: "prj-1",
		Engine:    "openai",
		RawText:   "other text",
	}
	if err := storage.SaveResult(ctx, dup); err == nil {
		t.Error("Expected second result for the same job to be rejected")
	}

	byJob, err := storage.GetResultByJob(ctx, "scan-1")
	if err != nil {
		t.Fatalf("Failed to get result by job: %v", err)
	}
	if byJob.ID != "res-1" {
		t.Errorf("Expected res-1, got %s", byJob.ID)
	}
}

func TestApplyEvaluationWritesAllFieldsOnce(t *testing.T) {
	db := newTestDB(t)
	storage := NewScanStorage(db, arbor.NewLogger())
	ctx := context.Background()

	result := &models.ScanResult{
		ID:        "res-eval",
		JobID:     "scan-eval",
		KeywordID: "kw-1",
		ProjectID: "prj-1",
		Engine:    "gemini",
		RawText:   "We recommend Acme for project management.",
	}
	if err := storage.SaveResult(ctx, result); err != nil {
		t.Fatalf("Failed to save result: %v", err)
	}

	rank := 1
	eval := &models.Evaluation{
		SentimentScore:     0.8,
		BrandVisibility:    true,
		ShareOfVoiceRank:   &rank,
		RecommendationType: string(models.RecommendationDirect),
	}
	at := time.Now()
	if err := storage.ApplyEvaluation(ctx, "res-eval", eval, at); err != nil {
		t.Fatalf("Failed to apply evaluation: %v", err)
	}

	loaded, err := storage.GetResult(ctx, "res-eval")
	if err != nil {
		t.Fatalf("Failed to get result: %v", err)
	}
	if !loaded.Evaluated() {
		t.Fatal("Expected result to be evaluated")
	}
	if loaded.SentimentScore == nil || *loaded.SentimentScore != 0.8 {
		t.Errorf("Unexpected sentiment: %v", loaded.SentimentScore)
	}
	if loaded.BrandVisible == nil || !*loaded.BrandVisible {
		t.Error("Expected brand_visible=true")
	}
	if loaded.ShareOfVoiceRank == nil || *loaded.ShareOfVoiceRank != 1 {
		t.Errorf("Unexpected rank: %v", loaded.ShareOfVoiceRank)
	}
	if loaded.RecommendationType == nil || *loaded.RecommendationType != string(models.RecommendationDirect) {
		t.Errorf("Unexpected recommendation type: %v", loaded.RecommendationType)
	}

	// Second evaluation must be rejected
	if err := storage.ApplyEvaluation(ctx, "res-eval", eval, time.Now()); err == nil {
		t.Error("Expected re-evaluation to be rejected")
	}
}

func TestListResultsByProjectSince(t *testing.T) {
	db := newTestDB(t)
	storage := NewScanStorage(db, arbor.NewLogger())
	ctx := context.Background()

	now := time.Now()
	results := []*models.ScanResult{
		{ID: "res-old", JobID: "j1", ProjectID: "prj-1", Engine: "openai", CreatedAt: now.Add(-48 * time.Hour)},
		{ID: "res-new", JobID: "j2", ProjectID: "prj-1", Engine: "openai", CreatedAt: now.Add(-1 * time.Hour)},
		{ID: "res-other", JobID: "j3", ProjectID: "prj-2", Engine: "openai", CreatedAt: now},
	}
	for _, r := range results {
		if err := storage.SaveResult(ctx, r); err != nil {
			t.Fatalf("Failed to save %s: %v", r.ID, err)
		}
	}

	got, err := storage.ListResultsByProject(ctx, "prj-1", now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Failed to list results: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 result in window, got %d", len(got))
	}
	if got[0].ID != "res-new" {
		t.Errorf("Expected res-new, got %s", got[0].ID)
	}
}

func TestGetJobNotFound(t *testing.T) {
	db := newTestDB(t)
	storage := NewScanStorage(db, arbor.NewLogger())

	if _, err := storage.GetJob(context.Background(), "missing"); err != interfaces.ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
