package llm

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/brandlens/brandlens/internal/common"
	"github.com/brandlens/brandlens/internal/interfaces"
)

// NewService builds the judge LLM service selected by evaluator.provider
func NewService(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (interfaces.LLMService, error) {
	timeout := common.ParseDurationOr(cfg.Evaluator.Timeout, 0)
	if timeout <= 0 {
		return nil, fmt.Errorf("invalid evaluator timeout: %q", cfg.Evaluator.Timeout)
	}

	switch cfg.Evaluator.Provider {
	case "claude", "":
		return NewClaudeService(&cfg.Providers.Claude, timeout, logger)
	case "gemini":
		return NewGeminiService(ctx, &cfg.Providers.Gemini, timeout, logger)
	default:
		return nil, fmt.Errorf("unsupported evaluator provider: %q (expected \"claude\" or \"gemini\")", cfg.Evaluator.Provider)
	}
}

// NewCorrectionService builds the LLM used for the auto-correction pass.
// With no correction model configured it returns nil, which makes the
// evaluator reuse the judge for corrections.
func NewCorrectionService(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (interfaces.LLMService, error) {
	if cfg.Evaluator.CorrectionModel == "" {
		return nil, nil
	}

	corrected := *cfg
	switch cfg.Evaluator.Provider {
	case "claude", "":
		corrected.Providers.Claude.Model = cfg.Evaluator.CorrectionModel
	case "gemini":
		corrected.Providers.Gemini.Model = cfg.Evaluator.CorrectionModel
	}
	return NewService(ctx, &corrected, logger)
}
