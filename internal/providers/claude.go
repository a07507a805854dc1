package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/brandlens/brandlens/internal/common"
	"github.com/brandlens/brandlens/internal/interfaces"
)

// ClaudeProvider probes Anthropic Claude as an answer engine
type ClaudeProvider struct {
	client    anthropic.Client
	model     string
	maxTokens int
	timeout   time.Duration
	pacer     *rate.Limiter
	logger    arbor.ILogger
}

// NewClaudeProvider creates a Claude answer-engine adapter
func NewClaudeProvider(cfg *common.ClaudeConfig, timeout time.Duration, logger arbor.ILogger) (*ClaudeProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required (set ANTHROPIC_API_KEY or providers.claude.api_key)")
	}

	model := cfg.Model
	if model == "" {
		model = "claude-haiku-3-5-20241022"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	interval := common.ParseDurationOr(cfg.RateLimit, time.Second)

	return &ClaudeProvider{
		client:    anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:     model,
		maxTokens: maxTokens,
		timeout:   timeout,
		pacer:     rate.NewLimiter(rate.Every(interval), 1),
		logger:    logger,
	}, nil
}

func (p *ClaudeProvider) Engine() string {
	return "claude"
}

func (p *ClaudeProvider) Search(ctx context.Context, query string) (*interfaces.Answer, error) {
	if err := p.pacer.Wait(ctx); err != nil {
		return nil, classify(p.Engine(), err)
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(p.maxTokens),
		System: []anthropic.TextBlockParam{
			{Text: answerSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(query)),
		},
		Temperature: anthropic.Float(0.3),
	}

	start := time.Now()
	resp, err := p.client.Messages.New(callCtx, params)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		if isQuotaError(err) {
			return nil, quotaError(p.Engine(), err)
		}
		return nil, classify(p.Engine(), err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	content := strings.TrimSpace(sb.String())
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
		Model:      string(resp.Model),
		TokenCount: int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		LatencyMS:  latency,
	}, nil
}
