package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/brandlens/brandlens/internal/common"
	"github.com/brandlens/brandlens/internal/interfaces"
	"github.com/brandlens/brandlens/internal/models"
	"github.com/brandlens/brandlens/internal/queue"
)

// Service creates scan jobs and feeds the scan queue. It implements
// interfaces.ScanRequester for the scheduler and the HTTP layer.
type Service struct {
	keywords    interfaces.KeywordStorage
	scans       interfaces.ScanStorage
	queue       interfaces.QueueManager
	factory     interfaces.ProviderFactory
	limiter     interfaces.RateLimiter
	quotaPolicy interfaces.RateLimitPolicy
	engineDelay time.Duration
	logger      arbor.ILogger
}

// NewService creates the scan request service
func NewService(
	keywords interfaces.KeywordStorage,
	scans interfaces.ScanStorage,
	queueMgr interfaces.QueueManager,
	factory interfaces.ProviderFactory,
	limiter interfaces.RateLimiter,
	quotaPolicy interfaces.RateLimitPolicy,
	engineDelay time.Duration,
	logger arbor.ILogger,
) *Service {
	return &Service{
		keywords:    keywords,
		scans:       scans,
		queue:       queueMgr,
		factory:     factory,
		limiter:     limiter,
		quotaPolicy: quotaPolicy,
		engineDelay: engineDelay,
		logger:      logger,
	}
}

// RequestScan creates one pending job per engine of the keyword and enqueues
// the probes with a staggered delay, so one keyword's engines are hit
// sequentially even though the worker pool runs probes concurrently.
// The project's daily scan quota is consumed once per engine probe.
func (s *Service) RequestScan(ctx context.Context, keywordID string) ([]string, error) {
	keyword, err := s.keywords.GetKeyword(ctx, keywordID)
	if err != nil {
		return nil, fmt.Errorf("failed to load keyword %s: %w", keywordID, err)
	}
	if !keyword.Active {
		return nil, fmt.Errorf("keyword %s is inactive", keywordID)
	}

	// Every configured engine must exist before any job is created
	for _, engine := range keyword.Engines {
		if _, err := s.factory.Provider(engine); err != nil {
			return nil, fmt.Errorf("keyword %s: %w", keywordID, err)
		}
	}

	var jobIDs []string
	for i, engine := range keyword.Engines {
		quota, err := s.limiter.Increment(ctx, keyword.ProjectID, s.quotaPolicy)
		if err != nil {
			return jobIDs, fmt.Errorf("scan quota check failed for project %s: %w", keyword.ProjectID, err)
		}
		if !quota.Allowed {
			s.logger.Warn().
				Str("project_id", keyword.ProjectID).
				Int("current", quota.Current).
				Int("limit", quota.Limit).
				Msg("Daily scan quota exhausted, skipping remaining engines")
			return jobIDs, fmt.Errorf("daily scan quota exhausted for project %s (%d/%d)", keyword.ProjectID, quota.Current, quota.Limit)
		}

		job := &models.ScanJob{
			ID:        common.NewScanJobID(),
			KeywordID: keyword.ID,
			ProjectID: keyword.ProjectID,
			Engine:    engine,
			Status:    models.ScanStatusPending,
			CreatedAt: time.Now(),
		}
		if err := s.scans.SaveJob(ctx, job); err != nil {
			return jobIDs, fmt.Errorf("failed to create scan job: %w", err)
		}

		msg, err := models.NewScanTaskMessage(models.ScanTask{
			JobID:     job.ID,
			KeywordID: keyword.ID,
			Engine:    engine,
		})
		if err != nil {
			return jobIDs, err
		}

		delay := time.Duration(i) * s.engineDelay
		if err := s.queue.EnqueueWithDelay(ctx, queue.ScanQueue, msg, delay); err != nil {
			return jobIDs, fmt.Errorf("failed to enqueue scan task: %w", err)
		}
		jobIDs = append(jobIDs, job.ID)

		s.logger.Debug().
			Str("job_id", job.ID).
			Str("keyword_id", keyword.ID).
			Str("engine", engine).
			Dur("delay", delay).
			Msg("Scan job enqueued")
	}

	s.logger.Info().
		Str("keyword_id", keyword.ID).
		Int("jobs", len(jobIDs)).
		Msg("Scan requested")

	return jobIDs, nil
}
