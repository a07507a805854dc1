package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/brandlens/brandlens/internal/interfaces"
	"github.com/brandlens/brandlens/internal/models"
)

// ScanStorage implements the ScanStorage interface for Badger
type ScanStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewScanStorage creates a new ScanStorage instance
func NewScanStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ScanStorage {
	return &ScanStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ScanStorage) SaveJob(ctx context.Context, job *models.ScanJob) error {
	if job.ID == "" {
		return fmt.Errorf("scan job ID is required")
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.Status == "" {
		job.Status = models.ScanStatusPending
	}

	if err := s.db.Store().Upsert(job.ID, job); err != nil {
		return fmt.Errorf("failed to save scan job: %w", err)
	}
	return nil
}

func (s *ScanStorage) GetJob(ctx context.Context, id string) (*models.ScanJob, error) {
	var job models.ScanJob
	if err := s.db.Store().Get(id, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get scan job: %w", err)
	}
	return &job, nil
}

func (s *ScanStorage) ListJobs(ctx context.Context, opts *interfaces.ScanJobListOptions) ([]*models.ScanJob, error) {
	query := badgerhold.Where("ID").Ne("")

	if opts != nil {
		if opts.KeywordID != "" {
			query = badgerhold.Where("KeywordID").Eq(opts.KeywordID).Index("KeywordID")
		}
		if opts.Status != "" {
			query = query.And("Status").Eq(opts.Status)
		}
		if opts.Limit > 0 {
			query = query.Limit(opts.Limit)
		}
		if opts.Offset > 0 {
			query = query.Skip(opts.Offset)
		}
	}
	query = query.SortBy("CreatedAt").Reverse()

	var jobs []models.ScanJob
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list scan jobs: %w", err)
	}

	result := make([]*models.ScanJob, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

// UpdateJobStatus transitions a job, refusing to reopen terminal jobs
func (s *ScanStorage) UpdateJobStatus(ctx context.Context, id string, status models.ScanJobStatus, errorMsg string) error {
	var job models.ScanJob
	if err := s.db.Store().Get(id, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return interfaces.ErrNotFound
		}
		return fmt.Errorf("failed to get scan job: %w", err)
	}

	if job.Status.IsTerminal() {
		return fmt.Errorf("scan job %s is terminal (%s), cannot transition to %s", id, job.Status, status)
	}

	job.Status = status
	job.Error = errorMsg
	if status.IsTerminal() {
		now := time.Now()
		job.CompletedAt = &now
	}

	if err := s.db.Store().Update(id, &job); err != nil {
		return fmt.Errorf("failed to update scan job status: %w", err)
	}
	return nil
}

func (s *ScanStorage) MarkJobProcessing(ctx context.Context, id string, startedAt time.Time) error {
	var job models.ScanJob
	if err := s.db.Store().Get(id, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return interfaces.ErrNotFound
		}
		return fmt.Errorf("failed to get scan job: %w", err)
	}

	if job.Status.IsTerminal() {
		return fmt.Errorf("scan job %s is terminal (%s), cannot start processing", id, job.Status)
	}

	job.Status = models.ScanStatusProcessing
	job.StartedAt = &startedAt

	if err := s.db.Store().Update(id, &job); err != nil {
		return fmt.Errorf("failed to mark scan job processing: %w", err)
	}
	return nil
}

func (s *ScanStorage) CompleteJob(ctx context.Context, id string, latencyMS int64, completedAt time.Time) error {
	var job models.ScanJob
	if err := s.db.Store().Get(id, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return interfaces.ErrNotFound
		}
		return fmt.Errorf("failed to get scan job: %w", err)
	}

	if job.Status != models.ScanStatusProcessing {
		return fmt.Errorf("scan job %s is %s, only processing jobs can complete", id, job.Status)
	}

	job.Status = models.ScanStatusCompleted
	job.LatencyMS = latencyMS
	job.CompletedAt = &completedAt

	if err := s.db.Store().Update(id, &job); err != nil {
		return fmt.Errorf("failed to complete scan job: %w", err)
	}
	return nil
}

// MarkProcessingJobsFailed marks every processing job as failed. Called once
// at startup to clean up jobs orphaned by a previous run.
func (s *ScanStorage) MarkProcessingJobsFailed(ctx context.Context, reason string) (int, error) {
	var jobs []models.ScanJob
	query := badgerhold.Where("Status").Eq(models.ScanStatusProcessing).Index("Status")
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return 0, fmt.Errorf("failed to find processing jobs: %w", err)
	}

	count := 0
	now := time.Now()
	for i := range jobs {
		jobs[i].Status = models.ScanStatusFailed
		jobs[i].Error = reason
		jobs[i].CompletedAt = &now
		if err := s.db.Store().Update(jobs[i].ID, &jobs[i]); err != nil {
			s.logger.Warn().Err(err).Str("job_id", jobs[i].ID).Msg("Failed to mark orphaned job failed")
			continue
		}
		count++
	}
	return count, nil
}

func (s *ScanStorage) CountJobsByStatus(ctx context.Context, status models.ScanJobStatus) (int, error) {
	count, err := s.db.Store().Count(&models.ScanJob{}, badgerhold.Where("Status").Eq(status).Index("Status"))
	if err != nil {
		return 0, fmt.Errorf("failed to count scan jobs: %w", err)
	}
	return int(count), nil
}

func (s *ScanStorage) SaveResult(ctx context.Context, result *models.ScanResult) error {
	if result.ID == "" {
		return fmt.Errorf("scan result ID is required")
	}
	if result.JobID == "" {
		return fmt.Errorf("scan result job ID is required")
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now()
	}

	// One result per job
	existing, err := s.GetResultByJob(ctx, result.JobID)
	if err != nil && err != interfaces.ErrNotFound {
		return err
	}
	if existing != nil && existing.ID != result.ID {
		return fmt.Errorf("scan job %s already has a result", result.JobID)
	}

	if err := s.db.Store().Upsert(result.ID, result); err != nil {
		return fmt.Errorf("failed to save scan result: %w", err)
	}
	return nil
}

func (s *ScanStorage) GetResult(ctx context.Context, id string) (*models.ScanResult, error) {
	var result models.ScanResult
	if err := s.db.Store().Get(id, &result); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get scan result: %w", err)
	}
	return &result, nil
}

func (s *ScanStorage) GetResultByJob(ctx context.Context, jobID string) (*models.ScanResult, error) {
	var results []models.ScanResult
	query := badgerhold.Where("JobID").Eq(jobID).Index("JobID").Limit(1)
	if err := s.db.Store().Find(&results, query); err != nil {
		return nil, fmt.Errorf("failed to find scan result by job: %w", err)
	}
	if len(results) == 0 {
		return nil, interfaces.ErrNotFound
	}
	return &results[0], nil
}

// ApplyEvaluation writes all judgment fields in one update. Judgment fields
// are never partially populated: either the whole set lands or none of it.
func (s *ScanStorage) ApplyEvaluation(ctx context.Context, resultID string, eval *models.Evaluation, at time.Time) error {
	var result models.ScanResult
	if err := s.db.Store().Get(resultID, &result); err != nil {
		if err == badgerhold.ErrNotFound {
			return interfaces.ErrNotFound
		}
		return fmt.Errorf("failed to get scan result: %w", err)
	}

	if result.Evaluated() {
		return fmt.Errorf("scan result %s is already evaluated", resultID)
	}

	sentiment := eval.SentimentScore
	visible := eval.BrandVisibility
	recType := string(models.NormalizeRecommendationType(eval.RecommendationType))

	result.SentimentScore = &sentiment
	result.BrandVisible = &visible
	result.ShareOfVoiceRank = eval.ShareOfVoiceRank
	result.RecommendationType = &recType
	result.EvaluatedAt = &at

	if err := s.db.Store().Update(resultID, &result); err != nil {
		return fmt.Errorf("failed to apply evaluation: %w", err)
	}
	return nil
}

func (s *ScanStorage) ListResultsByProject(ctx context.Context, projectID string, since time.Time) ([]*models.ScanResult, error) {
	var results []models.ScanResult
	query := badgerhold.Where("ProjectID").Eq(projectID).Index("ProjectID").
		And("CreatedAt").Ge(since).
		SortBy("CreatedAt").Reverse()
	if err := s.db.Store().Find(&results, query); err != nil {
		return nil, fmt.Errorf("failed to list scan results: %w", err)
	}

	out := make([]*models.ScanResult, len(results))
	for i := range results {
		out[i] = &results[i]
	}
	return out, nil
}
