package judge

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/brandlens/brandlens/internal/models"
)

var validate = validator.New()

// stripMarkdownFences removes ``` code fences some models wrap around JSON
// even when told not to.
func stripMarkdownFences(response string) string {
	response = strings.TrimSpace(response)
	if !strings.HasPrefix(response, "```") {
		return response
	}

	lines := strings.Split(response, "\n")
	var jsonLines []string
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		jsonLines = append(jsonLines, line)
	}
	return strings.TrimSpace(strings.Join(jsonLines, "\n"))
}

// parseEvaluation parses and validates a judge response. Sentiment scores
// are clamped into [-1, 1] before validation so minor float drift from the
// model does not fail an otherwise sound judgment.
func parseEvaluation(response string) (*models.Evaluation, error) {
	cleaned := stripMarkdownFences(response)
	if cleaned == "" {
		return nil, fmt.Errorf("empty judge response")
	}

	var eval models.Evaluation
	if err := json.Unmarshal([]byte(cleaned), &eval); err != nil {
		return nil, fmt.Errorf("failed to parse judgment JSON: %w", err)
	}

	eval.SentimentScore = clamp(eval.SentimentScore, -1, 1)
	// No competitor list means an empty mention map, never a nil one.
	if eval.CompetitorMentions == nil {
		eval.CompetitorMentions = map[string]bool{}
	}
	if eval.KeyPhrases == nil {
		eval.KeyPhrases = []string{}
	}

	if err := validate.Struct(&eval); err != nil {
		return nil, fmt.Errorf("judgment failed schema validation: %w", err)
	}
	return &eval, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
