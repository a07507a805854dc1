package judge

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/brandlens/brandlens/internal/interfaces"
	"github.com/brandlens/brandlens/internal/models"
)

// ErrEvaluationFailed marks the two-strike outcome: the judgment failed
// validation and the single correction pass did not repair it. Callers must
// not retry; the same answer would fail the same way.
var ErrEvaluationFailed = errors.New("evaluation failed after auto-correction")

// Evaluator converts raw scan answers into schema-validated judgments using
// an LLM judge. Validation failures get exactly one auto-correction pass;
// a second failure is fatal. Bounding the retries keeps evaluation cost
// predictable at the expense of losing the occasional stubborn answer.
type Evaluator struct {
	judge     interfaces.LLMService
	corrector interfaces.LLMService
	logger    arbor.ILogger
}

// NewEvaluator creates an evaluator. corrector may be nil, in which case the
// judge service also runs the correction pass.
func NewEvaluator(judgeLLM, corrector interfaces.LLMService, logger arbor.ILogger) *Evaluator {
	if corrector == nil {
		corrector = judgeLLM
	}
	return &Evaluator{
		judge:     judgeLLM,
		corrector: corrector,
		logger:    logger,
	}
}

// Evaluate judges one scan result against its project's brand entities.
// The returned judgment is fully validated; the caller persists it.
func (e *Evaluator) Evaluate(ctx context.Context, result *models.ScanResult, project *models.Project, keyword *models.Keyword) (*models.Evaluation, error) {
	// An empty answer is still judged; the expected outcome is an "absent"
	// recommendation with brand_visibility false.
	messages := []interfaces.Message{
		{Role: "system", Content: judgeSystemPrompt},
		{Role: "user", Content: buildJudgePrompt(result, project, keyword)},
	}

	response, err := e.judge.Chat(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("judge call failed: %w", err)
	}

	eval, parseErr := parseEvaluation(response)
	if parseErr == nil {
		return eval, nil
	}

	e.logger.Warn().
		Err(parseErr).
		Str("result_id", result.ID).
		Msg("Judgment failed validation, running auto-correction pass")

	corrected, err := e.correct(ctx, response, parseErr)
	if err != nil {
		return nil, err
	}

	e.logger.Info().Str("result_id", result.ID).Msg("Auto-correction pass produced a valid judgment")
	return corrected, nil
}

// correct runs the single correction pass. A second invalid judgment ends
// the evaluation: two strikes, no further retries. A failed correction call
// is not a strike; it surfaces as-is so transient upstream failures stay
// retryable.
func (e *Evaluator) correct(ctx context.Context, malformed string, cause error) (*models.Evaluation, error) {
	messages := []interfaces.Message{
		{Role: "system", Content: judgeSystemPrompt},
		{Role: "user", Content: buildCorrectionPrompt(malformed, cause)},
	}

	response, err := e.corrector.Chat(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("correction call failed: %w", err)
	}

	eval, parseErr := parseEvaluation(response)
	if parseErr != nil {
		return nil, fmt.Errorf("%w: corrected output still invalid: %v", ErrEvaluationFailed, parseErr)
	}
	return eval, nil
}
