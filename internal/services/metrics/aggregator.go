package metrics

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/brandlens/brandlens/internal/interfaces"
	"github.com/brandlens/brandlens/internal/models"
)

// timelineDays is the fixed bucket count of the dashboard timeline
const timelineDays = 7

// Summary holds the top-line share-of-model numbers for a project window.
// AvgSentiment is nil when no result in the window has been scored.
type Summary struct {
	TotalScans     int      `json:"total_scans"`
	VisibleScans   int      `json:"visible_scans"`
	VisibilityRate int      `json:"visibility_rate"`
	AvgSentiment   *float64 `json:"avg_sentiment"`
}

// EngineBreakdown is the per-engine slice of the summary
type EngineBreakdown struct {
	Engine  string `json:"engine"`
	Total   int    `json:"total"`
	Visible int    `json:"visible"`
	Rate    int    `json:"rate"`
}

// TimelineBucket is one UTC calendar day of the 7-day timeline.
// AvgSentiment is nil for days with no scored results.
type TimelineBucket struct {
	Date         string   `json:"date"`
	Scans        int      `json:"scans"`
	Visible      int      `json:"visible"`
	AvgSentiment *float64 `json:"avg_sentiment"`
}

// ProjectMetrics is the full dashboard payload
type ProjectMetrics struct {
	ProjectID  string            `json:"project_id"`
	Days       int               `json:"days"`
	Summary    Summary           `json:"summary"`
	ByEngine   []EngineBreakdown `json:"by_engine"`
	ByType     map[string]int    `json:"by_type"`
	Timeline   []TimelineBucket  `json:"timeline"`
	ComputedAt time.Time         `json:"computed_at"`
}

// Aggregator computes share-of-model metrics from persisted scan results.
// It is a pure read-side view: nothing here mutates storage, so numbers are
// recomputed on every call and never drift from the results they derive from.
type Aggregator struct {
	storage interfaces.ScanStorage
	logger  arbor.ILogger
	now     func() time.Time // injectable for tests
}

// NewAggregator creates a metrics aggregator
func NewAggregator(storage interfaces.ScanStorage, logger arbor.ILogger) *Aggregator {
	return &Aggregator{
		storage: storage,
		logger:  logger,
		now:     time.Now,
	}
}

// ProjectSummary computes the dashboard metrics for a project over the last
// `days` UTC calendar days (including today). Unscored results count toward
// totals and the `absent` histogram bucket but are excluded from sentiment.
func (a *Aggregator) ProjectSummary(ctx context.Context, projectID string, days int) (*ProjectMetrics, error) {
	if projectID == "" {
		return nil, fmt.Errorf("project ID is required")
	}
	if days < 1 {
		days = timelineDays
	}

	now := a.now().UTC()
	today := now.Truncate(24 * time.Hour)
	since := today.AddDate(0, 0, -(days - 1))

	results, err := a.storage.ListResultsByProject(ctx, projectID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list results for project %s: %w", projectID, err)
	}

	metrics := &ProjectMetrics{
		ProjectID:  projectID,
		Days:       days,
		Summary:    summarize(results),
		ByEngine:   byEngine(results),
		ByType:     byRecommendationType(results),
		Timeline:   timeline(results, today),
		ComputedAt: now,
	}

	a.logger.Debug().
		Str("project_id", projectID).
		Int("days", days).
		Int("results", len(results)).
		Msg("Project metrics computed")
	return metrics, nil
}

func summarize(results []*models.ScanResult) Summary {
	s := Summary{TotalScans: len(results)}
	var sentiments []float64
	for _, r := range results {
		if isVisible(r) {
			s.VisibleScans++
		}
		if r.SentimentScore != nil {
			sentiments = append(sentiments, *r.SentimentScore)
		}
	}
	s.VisibilityRate = percent(s.VisibleScans, s.TotalScans)
	s.AvgSentiment = meanRounded(sentiments)
	return s
}

func byEngine(results []*models.ScanResult) []EngineBreakdown {
	totals := make(map[string]*EngineBreakdown)
	var order []string
	for _, r := range results {
		b, ok := totals[r.Engine]
		if !ok {
			b = &EngineBreakdown{Engine: r.Engine}
			totals[r.Engine] = b
			order = append(order, r.Engine)
		}
		b.Total++
		if isVisible(r) {
			b.Visible++
		}
	}

	out := make([]EngineBreakdown, 0, len(order))
	for _, engine := range order {
		b := totals[engine]
		b.Rate = percent(b.Visible, b.Total)
		out = append(out, *b)
	}
	return out
}

// byRecommendationType always reports all four categories so the histogram
// shape is stable for dashboard consumers. Unscored and unknown values land
// in "absent", keeping the histogram sum equal to the total scan count.
func byRecommendationType(results []*models.ScanResult) map[string]int {
	hist := make(map[string]int, len(models.RecommendationTypes))
	for _, t := range models.RecommendationTypes {
		hist[string(t)] = 0
	}
	for _, r := range results {
		t := models.RecommendationAbsent
		if r.RecommendationType != nil {
			t = models.NormalizeRecommendationType(*r.RecommendationType)
		}
		hist[string(t)]++
	}
	return hist
}

// timeline buckets results into exactly 7 UTC calendar days ending today,
// oldest first. Sparse days still get a bucket.
func timeline(results []*models.ScanResult, today time.Time) []TimelineBucket {
	type acc struct {
		scans      int
		visible    int
		sentiments []float64
	}
	byDay := make(map[string]*acc)
	for _, r := range results {
		day := r.CreatedAt.UTC().Format("2006-01-02")
		b, ok := byDay[day]
		if !ok {
			b = &acc{}
			byDay[day] = b
		}
		b.scans++
		if isVisible(r) {
			b.visible++
		}
		if r.SentimentScore != nil {
			b.sentiments = append(b.sentiments, *r.SentimentScore)
		}
	}

	out := make([]TimelineBucket, 0, timelineDays)
	for i := timelineDays - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i).Format("2006-01-02")
		bucket := TimelineBucket{Date: day}
		if b, ok := byDay[day]; ok {
			bucket.Scans = b.scans
			bucket.Visible = b.visible
			bucket.AvgSentiment = meanRounded(b.sentiments)
		}
		out = append(out, bucket)
	}
	return out
}

func isVisible(r *models.ScanResult) bool {
	return r.BrandVisible != nil && *r.BrandVisible
}

// percent computes round-half-away-from-zero(100 * num / den), 0 when den is 0
func percent(num, den int) int {
	if den == 0 {
		return 0
	}
	return int(math.Round(100 * float64(num) / float64(den)))
}

// meanRounded returns the mean rounded to 2 decimals, nil for empty input
func meanRounded(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := math.Round(sum/float64(len(values))*100) / 100
	return &mean
}
