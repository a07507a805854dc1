package badger

import (
	"context"
	"testing"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/brandlens/brandlens/internal/interfaces"
	"github.com/brandlens/brandlens/internal/models"
)

func testKeyword(id, projectID string, freq models.ScanFrequency, active bool) *models.Keyword {
	return &models.Keyword{
		ID:        id,
		ProjectID: projectID,
		Text:      "best project management software",
		Intent:    models.IntentCommercial,
		Frequency: freq,
		Engines:   []string{"openai", "gemini"},
		Active:    active,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func TestKeywordRoundTrip(t *testing.T) {
	db := newTestDB(t)
	storage := NewKeywordStorage(db, arbor.NewLogger())
	ctx := context.Background()

	kw := testKeyword("kw-1", "prj-1", models.FrequencyDaily, true)
	if err := storage.SaveKeyword(ctx, kw); err != nil {
		t.Fatalf("Failed to save keyword: %v", err)
	}

	loaded, err := storage.GetKeyword(ctx, "kw-1")
	if err != nil {
		t.Fatalf("Failed to get keyword: %v", err)
	}
	if loaded.Text != kw.Text {
		t.Errorf("Expected %q, got %q", kw.Text, loaded.Text)
	}
	if len(loaded.Engines) != 2 {
		t.Errorf("Expected 2 engines, got %d", len(loaded.Engines))
	}
}

func TestListSchedulableExcludesManualAndInactive(t *testing.T) {
	db := newTestDB(t)
	storage := NewKeywordStorage(db, arbor.NewLogger())
	ctx := context.Background()

	keywords := []*models.Keyword{
		testKeyword("kw-daily", "prj-1", models.FrequencyDaily, true),
		testKeyword("kw-weekly", "prj-1", models.FrequencyWeekly, true),
		testKeyword("kw-manual", "prj-1", models.FrequencyManual, true),
		testKeyword("kw-inactive", "prj-1", models.FrequencyDaily, false),
	}
	for _, kw := range keywords {
		if err := storage.SaveKeyword(ctx, kw); err != nil {
			t.Fatalf("Failed to save %s: %v", kw.ID, err)
		}
	}

	schedulable, err := storage.ListSchedulable(ctx)
	if err != nil {
		t.Fatalf("Failed to list schedulable: %v", err)
	}
	if len(schedulable) != 2 {
		t.Fatalf("Expected 2 schedulable keywords, got %d", len(schedulable))
	}
	seen := map[string]bool{}
	for _, kw := range schedulable {
		seen[kw.ID] = true
	}
	if !seen["kw-daily"] || !seen["kw-weekly"] {
		t.Errorf("Unexpected schedulable set: %v", seen)
	}
}

func TestSetKeywordActiveAndTouch(t *testing.T) {
	db := newTestDB(t)
	storage := NewKeywordStorage(db, arbor.NewLogger())
	ctx := context.Background()

	kw := testKeyword("kw-toggle", "prj-1", models.FrequencyDaily, true)
	if err := storage.SaveKeyword(ctx, kw); err != nil {
		t.Fatalf("Failed to save keyword: %v", err)
	}

	if err := storage.SetKeywordActive(ctx, "kw-toggle", false); err != nil {
		t.Fatalf("Failed to deactivate: %v", err)
	}
	loaded, err := storage.GetKeyword(ctx, "kw-toggle")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Active {
		t.Error("Expected keyword to be inactive")
	}

	scannedAt := time.Now()
	if err := storage.TouchLastScanned(ctx, "kw-toggle", scannedAt); err != nil {
		t.Fatalf("Failed to touch last scanned: %v", err)
	}
	loaded, err = storage.GetKeyword(ctx, "kw-toggle")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.LastScannedAt == nil {
		t.Fatal("Expected last_scanned_at to be set")
	}
	if !loaded.LastScannedAt.Equal(scannedAt) {
		t.Errorf("Expected %v, got %v", scannedAt, loaded.LastScannedAt)
	}
}

func TestListKeywordsByProject(t *testing.T) {
	db := newTestDB(t)
	storage := NewKeywordStorage(db, arbor.NewLogger())
	ctx := context.Background()

	for _, kw := range []*models.Keyword{
		testKeyword("kw-p1-a", "prj-1", models.FrequencyDaily, true),
		testKeyword("kw-p1-b", "prj-1", models.FrequencyManual, false),
		testKeyword("kw-p2-a", "prj-2", models.FrequencyDaily, true),
	} {
		if err := storage.SaveKeyword(ctx, kw); err != nil {
			t.Fatalf("Failed to save %s: %v", kw.ID, err)
		}
	}

	got, err := storage.ListKeywordsByProject(ctx, "prj-1")
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Expected 2 keywords for prj-1, got %d", len(got))
	}
}

func TestProjectRoundTrip(t *testing.T) {
	db := newTestDB(t)
	storage := NewKeywordStorage(db, arbor.NewLogger())
	ctx := context.Background()

	project := &models.Project{
		ID:          "prj-acme",
		Name:        "Acme Tracking",
		BrandName:   "Acme",
		BrandDomain: "acme.com",
		Competitors: []models.Competitor{
			{Name: "Monday", Domain: "monday.com", Context: "the project management product, not the weekday"},
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := storage.SaveProject(ctx, project); err != nil {
		t.Fatalf("Failed to save project: %v", err)
	}

	loaded, err := storage.GetProject(ctx, "prj-acme")
	if err != nil {
		t.Fatalf("Failed to get project: %v", err)
	}
	if loaded.BrandName != "Acme" {
		t.Errorf("Expected Acme, got %s", loaded.BrandName)
	}
	if len(loaded.Competitors) != 1 || loaded.Competitors[0].Name != "Monday" {
		t.Errorf("Unexpected competitors: %+v", loaded.Competitors)
	}

	if _, err := storage.GetProject(ctx, "missing"); err != interfaces.ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestQuotaOverrides(t *testing.T) {
	db := newTestDB(t)
	storage := NewQuotaStorage(db, arbor.NewLogger())
	ctx := context.Background()

	if _, err := storage.GetQuota(ctx, "scan_quota", "prj-1"); err != interfaces.ErrNotFound {
		t.Errorf("Expected ErrNotFound for missing quota, got %v", err)
	}

	if err := storage.SetQuota(ctx, "scan_quota", "prj-1", 200); err != nil {
		t.Fatalf("Failed to set quota: %v", err)
	}
	limit, err := storage.GetQuota(ctx, "scan_quota", "prj-1")
	if err != nil {
		t.Fatalf("Failed to get quota: %v", err)
	}
	if limit != 200 {
		t.Errorf("Expected 200, got %d", limit)
	}

	if err := storage.SetQuota(ctx, "scan_quota", "prj-1", 0); err == nil {
		t.Error("Expected zero limit to be rejected")
	}

	if err := storage.DeleteQuota(ctx, "scan_quota", "prj-1"); err != nil {
		t.Fatalf("Failed to delete quota: %v", err)
	}
	if _, err := storage.GetQuota(ctx, "scan_quota", "prj-1"); err != interfaces.ErrNotFound {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}
