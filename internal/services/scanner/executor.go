package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/brandlens/brandlens/internal/common"
	"github.com/brandlens/brandlens/internal/interfaces"
	"github.com/brandlens/brandlens/internal/models"
	"github.com/brandlens/brandlens/internal/providers"
	"github.com/brandlens/brandlens/internal/queue"
)

// Executor runs scan probes claimed from the queue: resolve the answer from
// cache or the live engine, persist the result, and hand it to the
// evaluation queue.
type Executor struct {
	keywords interfaces.KeywordStorage
	scans    interfaces.ScanStorage
	queue    interfaces.QueueManager
	factory  interfaces.ProviderFactory
	cache    interfaces.AnswerCache
	logger   arbor.ILogger
}

// NewExecutor creates the scan task executor
func NewExecutor(
	keywords interfaces.KeywordStorage,
	scans interfaces.ScanStorage,
	queueMgr interfaces.QueueManager,
	factory interfaces.ProviderFactory,
	cache interfaces.AnswerCache,
	logger arbor.ILogger,
) *Executor {
	return &Executor{
		keywords: keywords,
		scans:    scans,
		queue:    queueMgr,
		factory:  factory,
		cache:    cache,
		logger:   logger,
	}
}

// ExecuteScan processes one scan task. Terminal jobs are never reopened: a
// redelivered task whose job already finished gets a fresh job row, so the
// attempt history stays intact.
func (e *Executor) ExecuteScan(ctx context.Context, task models.ScanTask) error {
	job, err := e.scans.GetJob(ctx, task.JobID)
	if err != nil {
		return fmt.Errorf("failed to load scan job %s: %w", task.JobID, err)
	}

	// A job cancelled before pickup is dropped, not replaced.
	if job.Status == models.ScanStatusCancelled {
		e.logger.Info().
			Str("job_id", job.ID).
			Msg("Skipping cancelled scan job")
		return nil
	}

	if job.Status.IsTerminal() {
		replacement := &models.ScanJob{
			ID:        common.NewScanJobID(),
			KeywordID: job.KeywordID,
			ProjectID: job.ProjectID,
			Engine:    job.Engine,
			Status:    models.ScanStatusPending,
			CreatedAt: time.Now(),
		}
		if err := e.scans.SaveJob(ctx, replacement); err != nil {
			return fmt.Errorf("failed to create replacement job: %w", err)
		}
		e.logger.Warn().
			Str("job_id", job.ID).
			Str("replacement_id", replacement.ID).
			Str("status", string(job.Status)).
			Msg("Redelivered task for terminal job, created replacement")
		job = replacement
	}

	if err := e.scans.MarkJobProcessing(ctx, job.ID, time.Now()); err != nil {
		return fmt.Errorf("failed to mark job processing: %w", err)
	}

	keyword, err := e.keywords.GetKeyword(ctx, job.KeywordID)
	if err != nil {
		return fmt.Errorf("failed to load keyword %s: %w", job.KeywordID, err)
	}
	project, err := e.keywords.GetProject(ctx, keyword.ProjectID)
	if err != nil {
		return fmt.Errorf("failed to load project %s: %w", keyword.ProjectID, err)
	}

	answer, fromCache, err := e.resolveAnswer(ctx, keyword.Text, job.Engine)
	if err != nil {
		e.recordAttemptFailure(ctx, job.ID, err)
		return err
	}

	// Cooperative cancellation: re-check before persisting. A cancel that
	// lands mid-probe discards the answer instead of completing the job.
	if current, err := e.scans.GetJob(ctx, job.ID); err == nil && current.Status == models.ScanStatusCancelled {
		e.logger.Info().
			Str("job_id", job.ID).
			Msg("Scan cancelled while processing, discarding answer")
		return nil
	}

	result := &models.ScanResult{
		ID:         common.NewScanResultID(),
		JobID:      job.ID,
		KeywordID:  keyword.ID,
		ProjectID:  project.ID,
		Engine:     job.Engine,
		RawText:    answer.Content,
		TokenCount: answer.TokenCount,
		Model:      answer.Model,
		Citations:  extractCitations(answer.Content, project),
		CreatedAt:  time.Now(),
	}
	if err := e.scans.SaveResult(ctx, result); err != nil {
		return fmt.Errorf("failed to save scan result: %w", err)
	}

	if err := e.scans.CompleteJob(ctx, job.ID, answer.LatencyMS, time.Now()); err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}

	if err := e.keywords.TouchLastScanned(ctx, keyword.ID, time.Now()); err != nil {
		e.logger.Warn().Err(err).Str("keyword_id", keyword.ID).Msg("Failed to update last scanned timestamp")
	}

	msg, err := models.NewEvaluateTaskMessage(models.EvaluateTask{
		ResultID:  result.ID,
		ProjectID: project.ID,
	})
	if err != nil {
		return err
	}
	if err := e.queue.Enqueue(ctx, queue.EvaluateQueue, msg); err != nil {
		return fmt.Errorf("failed to enqueue evaluation: %w", err)
	}

	e.logger.Info().
		Str("job_id", job.ID).
		Str("result_id", result.ID).
		Str("engine", job.Engine).
		Bool("from_cache", fromCache).
		Msg("Scan completed")

	return nil
}

// resolveAnswer returns the cached answer for (query, engine, UTC day) or
// probes the live engine on a miss. Cache write failures are logged and
// dropped; the probe result still counts.
func (e *Executor) resolveAnswer(ctx context.Context, query, engine string) (*interfaces.Answer, bool, error) {
	if entry, err := e.cache.Get(ctx, query, engine); err == nil {
		return &interfaces.Answer{
			Content:    entry.Content,
			Citations:  entry.Citations,
			Model:      entry.Model,
			TokenCount: entry.TokenCount,
			LatencyMS:  0,
		}, true, nil
	}

	provider, err := e.factory.Provider(engine)
	if err != nil {
		return nil, false, err
	}

	answer, err := provider.Search(ctx, query)
	if err != nil {
		return nil, false, err
	}

	if err := e.cache.Set(ctx, query, engine, &interfaces.CacheEntry{
		Content:    answer.Content,
		Model:      answer.Model,
		TokenCount: answer.TokenCount,
		CachedAt:   time.Now(),
	}); err != nil {
		e.logger.Warn().Err(err).Str("engine", engine).Msg("Failed to cache answer")
	}

	return answer, false, nil
}

// recordAttemptFailure returns a job to pending with the attempt's error so
// the row is not left processing for the whole backoff interval.
func (e *Executor) recordAttemptFailure(ctx context.Context, jobID string, cause error) {
	if err := e.scans.UpdateJobStatus(ctx, jobID, models.ScanStatusPending, cause.Error()); err != nil {
		e.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to record scan attempt failure")
	}
}

// FailJob records the terminal failure of a scan job after retries are
// exhausted. Called by the worker pool's dead-letter path.
func (e *Executor) FailJob(ctx context.Context, task models.ScanTask, reason string) {
	job, err := e.scans.GetJob(ctx, task.JobID)
	if err != nil || job.Status.IsTerminal() {
		return
	}
	if err := e.scans.UpdateJobStatus(ctx, task.JobID, models.ScanStatusFailed, reason); err != nil {
		e.logger.Error().Err(err).Str("job_id", task.JobID).Msg("Failed to mark job failed")
	}
}

func extractCitations(content string, project *models.Project) []models.Citation {
	domains := make([]string, 0, len(project.Competitors))
	for _, c := range project.Competitors {
		if c.Domain != "" {
			domains = append(domains, c.Domain)
		}
	}
	return providers.ExtractCitations(content, project.BrandDomain, domains)
}
