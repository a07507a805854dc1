package interfaces

import (
	"context"
)

// Message is a single turn in an LLM conversation
type Message struct {
	Role    string `json:"role"` // "system", "user", or "assistant"
	Content string `json:"content"`
}

// LLMService provides chat completions for the evaluation judge
type LLMService interface {
	Chat(ctx context.Context, messages []Message) (string, error)
	Close() error
}
