package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/brandlens/brandlens/internal/common"
	"github.com/brandlens/brandlens/internal/interfaces"
)

// GeminiProvider probes Google Gemini as an answer engine
type GeminiProvider struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	pacer   *rate.Limiter
	logger  arbor.ILogger
}

// NewGeminiProvider creates a Gemini answer-engine adapter
func NewGeminiProvider(ctx context.Context, cfg *common.GeminiConfig, timeout time.Duration, logger arbor.ILogger) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY or providers.gemini.api_key)")
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-3-flash-preview"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	// Default pacing matches the free tier (15 RPM)
	interval := common.ParseDurationOr(cfg.RateLimit, 4*time.Second)

	return &GeminiProvider{
		client:  client,
		model:   model,
		timeout: timeout,
		pacer:   rate.NewLimiter(rate.Every(interval), 1),
		logger:  logger,
	}, nil
}

func (p *GeminiProvider) Engine() string {
	return "gemini"
}

func (p *GeminiProvider) Search(ctx context.Context, query string) (*interfaces.Answer, error) {
	if err := p.pacer.Wait(ctx); err != nil {
		return nil, classify(p.Engine(), err)
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	config := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(float32(0.3)),
		SystemInstruction: genai.NewContentFromText(answerSystemPrompt, genai.RoleUser),
	}
	contents := []*genai.Content{
		genai.NewContentFromText(query, genai.RoleUser),
	}

	start := time.Now()
	resp, err := p.client.Models.GenerateContent(callCtx, p.model, contents, config)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		if isQuotaError(err) {
			return nil, quotaError(p.Engine(), err)
		}
		return nil, classify(p.Engine(), err)
	}

	content := extractGeminiText(resp)
	if content == "" {
		return nil, malformedError(p.Engine(), fmt.Errorf("empty answer content"))
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	p.logger.Debug().
		Str("engine", p.Engine()).
		Int64("latency_ms", latency).
		Int("content_length", len(content)).
		Msg("Answer engine probe completed")

	return &interfaces.Answer{
		Content:    content,
		Model:      p.model,
		TokenCount: tokens,
		LatencyMS:  latency,
	}, nil
}

// extractGeminiText concatenates text parts from the first candidate that
// has any.
func extractGeminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				sb.WriteString(part.Text)
			}
		}
		if sb.Len() > 0 {
			break
		}
	}
	return strings.TrimSpace(sb.String())
}
