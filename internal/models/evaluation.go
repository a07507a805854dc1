package models

// RecommendationType classifies how the answer engine positioned the brand
type RecommendationType string

const (
	RecommendationDirect   RecommendationType = "direct_recommendation"
	RecommendationNeutral  RecommendationType = "neutral_comparison"
	RecommendationNegative RecommendationType = "negative_mention"
	RecommendationAbsent   RecommendationType = "absent"
)

// RecommendationTypes lists the four fixed categories in histogram order
var RecommendationTypes = []RecommendationType{
	RecommendationDirect,
	RecommendationNeutral,
	RecommendationNegative,
	RecommendationAbsent,
}

// NormalizeRecommendationType maps unknown or empty values to "absent",
// which is also how unscored results are bucketed in aggregates.
func NormalizeRecommendationType(s string) RecommendationType {
	switch RecommendationType(s) {
	case RecommendationDirect, RecommendationNeutral, RecommendationNegative, RecommendationAbsent:
		return RecommendationType(s)
	default:
		return RecommendationAbsent
	}
}

// Evaluation is the schema-validated judgment produced by the LLM judge.
// Field tags double as the contract for the structured-output call: the judge
// prompt describes exactly this JSON shape, and validator/v10 enforces it.
type Evaluation struct {
	SentimentScore     float64         `json:"sentiment_score" validate:"gte=-1,lte=1"`
	BrandVisibility    bool            `json:"brand_visibility"`
	ShareOfVoiceRank   *int            `json:"share_of_voice_rank" validate:"omitempty,gt=0"`
	RecommendationType string          `json:"recommendation_type" validate:"required,oneof=direct_recommendation neutral_comparison negative_mention absent"`
	KeyPhrases         []string        `json:"key_phrases"`
	CompetitorMentions map[string]bool `json:"competitor_mentions"`
	HallucinationFlag  bool            `json:"hallucination_flag"`
	ComplianceWarning  *string         `json:"compliance_warning"`
	Reasoning          string          `json:"reasoning,omitempty"`
}
