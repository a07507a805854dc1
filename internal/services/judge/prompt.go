package judge

import (
	"fmt"
	"strings"

	"github.com/brandlens/brandlens/internal/models"
)

const judgeSystemPrompt = `You are a brand-visibility analyst. You receive the raw answer an AI
search engine gave to a user's query, and you judge how a specific brand was
positioned in that answer. Respond with a single JSON object and nothing else:
no markdown fences, no commentary.`

// buildJudgePrompt assembles the evaluation prompt for one scan result.
// Competitor context lines disambiguate brand names that collide with common
// words, so a mention of "Monday" the weekday is not scored as a mention of
// Monday.com.
func buildJudgePrompt(result *models.ScanResult, project *models.Project, keyword *models.Keyword) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Brand under analysis: %q", project.BrandName)
	if project.BrandDomain != "" {
		fmt.Fprintf(&sb, " (domain: %s)", project.BrandDomain)
	}
	sb.WriteString("\n")

	if len(project.Competitors) > 0 {
		sb.WriteString("Competitors to check for mentions:\n")
		for _, c := range project.Competitors {
			fmt.Fprintf(&sb, "- %q", c.Name)
			if c.Domain != "" {
				fmt.Fprintf(&sb, " (domain: %s)", c.Domain)
			}
			if c.Context != "" {
				fmt.Fprintf(&sb, " — only count mentions of %s", c.Context)
			}
			sb.WriteString("\n")
		}
	}

	fmt.Fprintf(&sb, "\nOriginal user query: %q\n", keyword.Text)
	fmt.Fprintf(&sb, "Answer engine: %s\n", result.Engine)
	fmt.Fprintf(&sb, "\nRaw answer to evaluate:\n---\n%s\n---\n", result.RawText)

	sb.WriteString(`
Evaluate the raw answer and produce exactly this JSON object:
{
  "sentiment_score": <number in [-1.0, 1.0]; sentiment toward the brand; 0 if the brand is absent>,
  "brand_visibility": <true if the brand is mentioned at all>,
  "share_of_voice_rank": <1-based position of the brand among all recommended products, or null if absent>,
  "recommendation_type": <one of "direct_recommendation", "neutral_comparison", "negative_mention", "absent">,
  "key_phrases": [<short phrases the answer associates with the brand; empty list if none>],
  "competitor_mentions": {<competitor name>: <true if genuinely mentioned>, ... one entry per listed competitor},
  "hallucination_flag": <true if the answer states facts about the brand that are clearly invented>,
  "compliance_warning": <string describing any regulated-claim concern (medical, financial, legal), or null>,
  "reasoning": <one or two sentences explaining your judgment>
}

Count a brand or competitor as mentioned only when the answer refers to the
company or product itself, not an unrelated use of the same word.`)

	return sb.String()
}

// buildCorrectionPrompt asks the model to repair a malformed judgment.
// Used for the single auto-correction pass after a validation failure.
func buildCorrectionPrompt(malformed string, validationErr error) string {
	var sb strings.Builder
	sb.WriteString("The following output was supposed to be a single valid JSON object matching the evaluation schema, but it failed validation.\n\n")
	fmt.Fprintf(&sb, "Validation error: %v\n\n", validationErr)
	fmt.Fprintf(&sb, "Malformed output:\n---\n%s\n---\n\n", malformed)
	sb.WriteString(`Produce a corrected JSON object that satisfies the schema:
sentiment_score (number in [-1.0, 1.0]), brand_visibility (boolean),
share_of_voice_rank (positive integer or null), recommendation_type (one of
"direct_recommendation", "neutral_comparison", "negative_mention", "absent"),
key_phrases (list of strings), competitor_mentions (object of name to boolean),
hallucination_flag (boolean), compliance_warning (string or null),
reasoning (string).

Preserve the original judgment wherever it was valid; only repair what the
validation error identifies. Respond with the JSON object only.`)
	return sb.String()
}
