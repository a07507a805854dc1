package models

import (
	"time"
)

// ScanJobStatus represents the state of a scan job
type ScanJobStatus string

const (
	ScanStatusPending    ScanJobStatus = "pending"
	ScanStatusProcessing ScanJobStatus = "processing"
	ScanStatusCompleted  ScanJobStatus = "completed"
	ScanStatusFailed     ScanJobStatus = "failed"
	ScanStatusCancelled  ScanJobStatus = "cancelled"
)

// IsTerminal reports whether the status can no longer change.
// Terminal jobs are never reopened; a retry creates a new job.
func (s ScanJobStatus) IsTerminal() bool {
	return s == ScanStatusCompleted || s == ScanStatusFailed || s == ScanStatusCancelled
}

// ScanJob is one attempt to probe one engine for one keyword.
// Lifecycle: pending -> processing -> completed | failed | cancelled.
type ScanJob struct {
	ID          string        `json:"id" badgerhold:"key"`
	KeywordID   string        `json:"keyword_id" badgerholdIndex:"KeywordID"`
	ProjectID   string        `json:"project_id"`
	Engine      string        `json:"engine"`
	Status      ScanJobStatus `json:"status" badgerholdIndex:"Status"`
	Priority    int           `json:"priority"`
	LatencyMS   int64         `json:"latency_ms"`
	Error       string        `json:"error,omitempty"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Citation is a source URL extracted from a scan result
type Citation struct {
	URL          string `json:"url"`
	Domain       string `json:"domain"`
	Title        string `json:"title,omitempty"`
	Position     int    `json:"position"`
	IsBrand      bool   `json:"is_brand"`
	IsCompetitor bool   `json:"is_competitor"`
}

// ScanResult is the raw provider answer for a completed job, 1:1 with the job.
// The judgment fields stay nil until the evaluation engine writes them, and
// are written exactly once, all together.
type ScanResult struct {
	ID         string     `json:"id" badgerhold:"key"`
	JobID      string     `json:"job_id" badgerholdIndex:"JobID"`
	KeywordID  string     `json:"keyword_id"`
	ProjectID  string     `json:"project_id" badgerholdIndex:"ProjectID"`
	Engine     string     `json:"engine"`
	RawText    string     `json:"raw_text"`
	TokenCount int        `json:"token_count"`
	Model      string     `json:"model"`
	Citations  []Citation `json:"citations,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`

	// Judgment fields, populated atomically by the evaluation engine
	SentimentScore     *float64   `json:"sentiment_score,omitempty"`
	BrandVisible       *bool      `json:"brand_visible,omitempty"`
	ShareOfVoiceRank   *int       `json:"share_of_voice_rank,omitempty"`
	RecommendationType *string    `json:"recommendation_type,omitempty"`
	EvaluatedAt        *time.Time `json:"evaluated_at,omitempty"`
}

// Evaluated reports whether the judgment fields have been written
func (r *ScanResult) Evaluated() bool {
	return r.EvaluatedAt != nil
}
