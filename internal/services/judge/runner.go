package judge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/brandlens/brandlens/internal/interfaces"
	"github.com/brandlens/brandlens/internal/models"
)

// fatalError marks failures that will not improve on redelivery
// (the two-strike validation path).
type fatalError struct {
	err error
}

func (e *fatalError) Error() string   { return e.err.Error() }
func (e *fatalError) Unwrap() error   { return e.err }
func (e *fatalError) Retryable() bool { return false }

// Runner processes evaluate tasks from the queue: load the scan result and
// its brand context, run the judge, and persist the judgment atomically.
type Runner struct {
	evaluator *Evaluator
	keywords  interfaces.KeywordStorage
	scans     interfaces.ScanStorage
	logger    arbor.ILogger
}

// NewRunner creates the evaluate task runner
func NewRunner(evaluator *Evaluator, keywords interfaces.KeywordStorage, scans interfaces.ScanStorage, logger arbor.ILogger) *Runner {
	return &Runner{
		evaluator: evaluator,
		keywords:  keywords,
		scans:     scans,
		logger:    logger,
	}
}

// ExecuteEvaluate judges one scan result. Redelivery of an already-evaluated
// result is acknowledged without re-judging: judgment fields are written
// exactly once.
func (r *Runner) ExecuteEvaluate(ctx context.Context, task models.EvaluateTask) error {
	result, err := r.scans.GetResult(ctx, task.ResultID)
	if err != nil {
		return &fatalError{fmt.Errorf("failed to load scan result %s: %w", task.ResultID, err)}
	}

	if result.Evaluated() {
		r.logger.Debug().Str("result_id", result.ID).Msg("Result already evaluated, skipping")
		return nil
	}

	keyword, err := r.keywords.GetKeyword(ctx, result.KeywordID)
	if err != nil {
		return &fatalError{fmt.Errorf("failed to load keyword %s: %w", result.KeywordID, err)}
	}
	project, err := r.keywords.GetProject(ctx, result.ProjectID)
	if err != nil {
		return &fatalError{fmt.Errorf("failed to load project %s: %w", result.ProjectID, err)}
	}

	eval, err := r.evaluator.Evaluate(ctx, result, project, keyword)
	if err != nil {
		// Two-strike validation failures are final; transient judge API
		// failures go back to the queue for retry
		if errors.Is(err, ErrEvaluationFailed) {
			return &fatalError{err}
		}
		return err
	}

	if err := r.scans.ApplyEvaluation(ctx, result.ID, eval, time.Now()); err != nil {
		return fmt.Errorf("failed to persist judgment for %s: %w", result.ID, err)
	}

	r.logger.Info().
		Str("result_id", result.ID).
		Bool("brand_visible", eval.BrandVisibility).
		Float64("sentiment", eval.SentimentScore).
		Str("recommendation", eval.RecommendationType).
		Msg("Scan result evaluated")

	return nil
}
