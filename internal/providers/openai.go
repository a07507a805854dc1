package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/brandlens/brandlens/internal/common"
	"github.com/brandlens/brandlens/internal/interfaces"
)

const answerSystemPrompt = "You are a helpful assistant answering a user's search query. " +
	"Answer naturally and completely, recommending specific products, services or brands where relevant. " +
	"Include source URLs when you reference them."

// OpenAIProvider probes OpenAI chat models as an answer engine
type OpenAIProvider struct {
	client  openai.Client
	model   string
	timeout time.Duration
	pacer   *rate.Limiter
	logger  arbor.ILogger
}

// NewOpenAIProvider creates an OpenAI answer-engine adapter
func NewOpenAIProvider(cfg *common.OpenAIConfig, timeout time.Duration, logger arbor.ILogger) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required (set OPENAI_API_KEY or providers.openai.api_key)")
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	interval := common.ParseDurationOr(cfg.RateLimit, time.Second)

	return &OpenAIProvider{
		client:  openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:   model,
		timeout: timeout,
		pacer:   rate.NewLimiter(rate.Every(interval), 1),
		logger:  logger,
	}, nil
}

func (p *OpenAIProvider) Engine() string {
	return "openai"
}

func (p *OpenAIProvider) Search(ctx context.Context, query string) (*interfaces.Answer, error) {
	if err := p.pacer.Wait(ctx); err != nil {
		return nil, classify(p.Engine(), err)
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(callCtx, openai.ChatCompletionNewParams{
		Model: p.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(answerSystemPrompt),
			openai.UserMessage(query),
		},
		Temperature: openai.Float(0.3),
	})
	latency := time.Since(start).Milliseconds()

	if err != nil {
		if isQuotaError(err) {
			return nil, quotaError(p.Engine(), err)
		}
		return nil, classify(p.Engine(), err)
	}

	if len(resp.Choices) == 0 {
		return nil, malformedError(p.Engine(), fmt.Errorf("no choices in response"))
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return nil, malformedError(p.Engine(), fmt.Errorf("empty answer content"))
	}

	p.logger.Debug().
		Str("engine", p.Engine()).
		Int64("latency_ms", latency).
		Int("content_length", len(content)).
		Msg("Answer engine probe completed")

	return &interfaces.Answer{
		Content:    content,
		Model:      resp.Model,
		TokenCount: int(resp.Usage.TotalTokens),
		LatencyMS:  latency,
	}, nil
}

// isQuotaError detects upstream rate/quota rejections from the error text.
// The SDKs surface HTTP 429 differently; string matching covers all of them.
func isQuotaError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "overloaded")
}
