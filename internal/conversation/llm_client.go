package conversation

import (
	"context"
	"fmt"
)

const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is one role-tagged turn, as sent by the browser in
// messageHistory and as forwarded to a model.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

// LLMRequest is provider neutral. Model is filled in per candidate by the
// CandidateChain; a negative Temperature leaves the provider default.
type LLMRequest struct {
	Model       string
	System      []string
	Messages    []ChatMessage
	MaxTokens   int32
	Temperature float32
}

type LLMResponse struct {
	Text       string
	Model      string
	Usage      TokenUsage
	StopReason string
}

// LLMClient is a single chat-completion backend.
type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}

// ModelError is a failed completion. Status is the upstream HTTP status,
// or 0 when the request never got an answer.
type ModelError struct {
	Provider string
	Model    string
	Status   int
	Err      error
}

func (e *ModelError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s %s completion failed (status %d): %v", e.Provider, e.Model, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s completion failed: %v", e.Provider, e.Model, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

// Retryable reports whether another attempt could succeed: rate limits,
// server errors and transport failures.
func (e *ModelError) Retryable() bool {
	return e.Status == 0 || e.Status == 429 || e.Status >= 500
}
