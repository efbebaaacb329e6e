package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/medassist/internal/conversation"
)

type fixedResponder struct{ resp conversation.ChatResponse }

func (f fixedResponder) GenerateChatResponse(context.Context, string, []conversation.ChatMessage) conversation.ChatResponse {
	return f.resp
}

type modelClient struct{ fail map[string]bool }

func (c modelClient) Complete(_ context.Context, req conversation.LLMRequest) (conversation.LLMResponse, error) {
	if c.fail[req.Model] {
		return conversation.LLMResponse{}, errors.New("503 service unavailable")
	}
	return conversation.LLMResponse{Text: "hi from " + req.Model, Usage: conversation.TokenUsage{InputTokens: 12, OutputTokens: 4}}, nil
}

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"-a", "--timeout", "5s", "what is diabetes?"})
	require.NoError(t, err)
	assert.True(t, opts.probeAll)
	assert.Equal(t, 5*time.Second, opts.timeout)
	assert.Equal(t, "what is diabetes?", opts.message)
	assert.Equal(t, ".env", opts.envFile)

	_, err = parseFlags([]string{"--nope"})
	assert.Error(t, err)
}

func TestRunTurnPrintsEnvelope(t *testing.T) {
	var buf bytes.Buffer
	err := runTurn(context.Background(), &buf, fixedResponder{resp: conversation.ChatResponse{Message: "Hello!"}}, "hi")
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "Hello!", out["message"])
	assert.Contains(t, out, "service")
	assert.Nil(t, out["service"])
}

func TestProbeCandidates(t *testing.T) {
	client := modelClient{fail: map[string]bool{"mixtral-8x7b-32768": true}}
	candidates := []conversation.Candidate{
		{Model: "llama3-8b-8192", Client: client},
		{Model: "mixtral-8x7b-32768", Client: client},
	}

	var buf bytes.Buffer
	failed := probeCandidates(context.Background(), &buf, candidates, "hello")
	assert.Equal(t, 1, failed)
	assert.Contains(t, buf.String(), "llama3-8b-8192 ok")
	assert.Contains(t, buf.String(), "hi from llama3-8b-8192")
	assert.Contains(t, buf.String(), "mixtral-8x7b-32768 FAILED")
	assert.Contains(t, buf.String(), "1/2 models answered")
}
