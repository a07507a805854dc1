package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/brandlens/brandlens/internal/models"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("record not found")

// KeywordStorage defines persistence operations for keywords and projects
type KeywordStorage interface {
	SaveKeyword(ctx context.Context, keyword *models.Keyword) error
	GetKeyword(ctx context.Context, id string) (*models.Keyword, error)
	ListKeywordsByProject(ctx context.Context, projectID string) ([]*models.Keyword, error)
	// ListSchedulable returns active keywords with frequency daily or weekly
	ListSchedulable(ctx context.Context) ([]*models.Keyword, error)
	SetKeywordActive(ctx context.Context, id string, active bool) error
	TouchLastScanned(ctx context.Context, id string, at time.Time) error

	SaveProject(ctx context.Context, project *models.Project) error
	GetProject(ctx context.Context, id string) (*models.Project, error)
	ListProjects(ctx context.Context) ([]*models.Project, error)
}

// ScanJobListOptions filters job listings
type ScanJobListOptions struct {
	KeywordID string
	Status    models.ScanJobStatus
	Limit     int
	Offset    int
}

// ScanStorage defines persistence operations for scan jobs and results
type ScanStorage interface {
	SaveJob(ctx context.Context, job *models.ScanJob) error
	GetJob(ctx context.Context, id string) (*models.ScanJob, error)
	ListJobs(ctx context.Context, opts *ScanJobListOptions) ([]*models.ScanJob, error)
	// UpdateJobStatus transitions a job. Terminal jobs are immutable: the
	// update is rejected once the stored status is completed/failed/cancelled.
	UpdateJobStatus(ctx context.Context, id string, status models.ScanJobStatus, errorMsg string) error
	MarkJobProcessing(ctx context.Context, id string, startedAt time.Time) error
	CompleteJob(ctx context.Context, id string, latencyMS int64, completedAt time.Time) error
	// MarkProcessingJobsFailed is the restart reconciliation path: every job
	// left in processing state is marked failed with the given reason.
	MarkProcessingJobsFailed(ctx context.Context, reason string) (int, error)
	CountJobsByStatus(ctx context.Context, status models.ScanJobStatus) (int, error)

	SaveResult(ctx context.Context, result *models.ScanResult) error
	GetResult(ctx context.Context, id string) (*models.ScanResult, error)
	GetResultByJob(ctx context.Context, jobID string) (*models.ScanResult, error)
	// ApplyEvaluation writes all judgment fields in one atomic update.
	// It fails if the result was already evaluated.
	ApplyEvaluation(ctx context.Context, resultID string, eval *models.Evaluation, at time.Time) error
	// ListResultsByProject returns results created at or after since,
	// newest first.
	ListResultsByProject(ctx context.Context, projectID string, since time.Time) ([]*models.ScanResult, error)
}

// QuotaStorage stores per-subject rate limit overrides
type QuotaStorage interface {
	// GetQuota returns the override for (policy, subject), or ErrNotFound
	GetQuota(ctx context.Context, policy, subject string) (int, error)
	SetQuota(ctx context.Context, policy, subject string, limit int) error
	DeleteQuota(ctx context.Context, policy, subject string) error
}

// StorageManager provides access to all storage implementations
type StorageManager interface {
	KeywordStorage() KeywordStorage
	ScanStorage() ScanStorage
	QuotaStorage() QuotaStorage
	Close() error
}
