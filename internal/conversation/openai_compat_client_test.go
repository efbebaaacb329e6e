package conversation

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChatClient struct {
	req  openai.ChatCompletionRequest
	resp openai.ChatCompletionResponse
	err  error
}

func (s *stubChatClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.req = req
	return s.resp, s.err
}

func TestOpenAICompatClientMapsRequest(t *testing.T) {
	stub := &stubChatClient{resp: openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "  Drink water.  "},
			FinishReason: openai.FinishReasonStop,
		}},
		Usage: openai.Usage{PromptTokens: 12, CompletionTokens: 3, TotalTokens: 15},
	}}
	client := newOpenAICompatClientWith(stub)

	resp, err := client.Complete(context.Background(), LLMRequest{
		Model:  "llama3-8b-8192",
		System: []string{"be kind", "  "},
		Messages: []ChatMessage{
			{Role: ChatRoleUser, Content: "hi"},
			{Role: ChatRoleAssistant, Content: "hello"},
			{Role: ChatRoleUser, Content: "thirsty"},
		},
		MaxTokens:   500,
		Temperature: 0.7,
	})
	require.NoError(t, err)

	assert.Equal(t, "llama3-8b-8192", stub.req.Model)
	assert.Equal(t, 500, stub.req.MaxTokens)
	assert.InDelta(t, 0.7, stub.req.Temperature, 0.0001)
	require.Len(t, stub.req.Messages, 4)
	assert.Equal(t, openai.ChatMessageRoleSystem, stub.req.Messages[0].Role)
	assert.Equal(t, "be kind", stub.req.Messages[0].Content)
	assert.Equal(t, openai.ChatMessageRoleAssistant, stub.req.Messages[2].Role)

	assert.Equal(t, "Drink water.", resp.Text)
	assert.Equal(t, "llama3-8b-8192", resp.Model)
	assert.Equal(t, "stop", resp.StopReason)
	assert.Equal(t, TokenUsage{InputTokens: 12, OutputTokens: 3, TotalTokens: 15}, resp.Usage)
}

func TestOpenAICompatClientErrors(t *testing.T) {
	client := newOpenAICompatClientWith(&stubChatClient{err: errors.New("429 rate limited")})

	_, err := client.Complete(context.Background(), LLMRequest{})
	assert.Error(t, err)

	_, err = client.Complete(context.Background(), LLMRequest{Model: "gemma-7b-it"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemma-7b-it")
	assert.Contains(t, err.Error(), "429")
}

func TestOpenAICompatClientModelError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		retryable bool
	}{
		{"rate limited", &openai.APIError{HTTPStatusCode: 429, Message: "slow down"}, 429, true},
		{"bad key", &openai.APIError{HTTPStatusCode: 401, Message: "invalid api key"}, 401, false},
		{"gateway", &openai.RequestError{HTTPStatusCode: 502, Err: errors.New("bad gateway")}, 502, true},
		{"transport", errors.New("dial tcp: connection refused"), 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newOpenAICompatClientWith(&stubChatClient{err: tt.err})
			_, err := client.Complete(context.Background(), LLMRequest{Model: "llama3-8b-8192"})

			var merr *ModelError
			require.ErrorAs(t, err, &merr)
			assert.Equal(t, "groq", merr.Provider)
			assert.Equal(t, "llama3-8b-8192", merr.Model)
			assert.Equal(t, tt.status, merr.Status)
			assert.Equal(t, tt.retryable, merr.Retryable())
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestOpenAICompatClientNoChoices(t *testing.T) {
	client := newOpenAICompatClientWith(&stubChatClient{})
	resp, err := client.Complete(context.Background(), LLMRequest{Model: "m"})
	require.NoError(t, err)
	assert.Empty(t, resp.Text)
}

func TestNewOpenAICompatClientRequiresKey(t *testing.T) {
	_, err := NewOpenAICompatClient(OpenAICompatConfig{})
	assert.Error(t, err)

	client, err := NewOpenAICompatClient(OpenAICompatConfig{APIKey: "gsk_test"})
	require.NoError(t, err)
	assert.NotNil(t, client)
}
