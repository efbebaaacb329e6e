package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionBody(content string, citations []string) map[string]any {
	body := map[string]any{
		"id":      "cmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   DefaultPerplexityModel,
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	}
	if citations != nil {
		body["citations"] = citations
	}
	return body
}

func newPerplexityServer(t *testing.T, status int, body any, captured *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if captured != nil {
			_ = json.NewDecoder(r.Body).Decode(captured)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewPerplexityClientRequiresKey(t *testing.T) {
	_, err := NewPerplexityClient(PerplexityConfig{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestPerplexitySearchParsesJSON(t *testing.T) {
	content := `{"summary":"Asthma is a chronic lung condition.","results":[{"title":"Asthma | NHLBI","url":"https://www.nhlbi.nih.gov/health/asthma","displayUrl":"nhlbi.nih.gov","snippet":"Asthma affects airways."}]}`
	var req map[string]any
	srv := newPerplexityServer(t, http.StatusOK, completionBody(content, []string{"https://www.nhlbi.nih.gov/health/asthma"}), &req)

	client, err := NewPerplexityClient(PerplexityConfig{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	data, err := client.Search(context.Background(), "asthma")
	require.NoError(t, err)
	assert.Equal(t, "asthma", data.Title)
	assert.Equal(t, "Asthma is a chronic lung condition.", data.Summary)
	require.Len(t, data.Results, 1)
	assert.Equal(t, "nhlbi.nih.gov", data.Results[0].DisplayURL)
	assert.Equal(t, []string{"https://www.nhlbi.nih.gov/health/asthma"}, data.Citations)

	assert.Equal(t, DefaultPerplexityModel, req["model"])
	assert.Equal(t, "month", req["search_recency_filter"])
	assert.EqualValues(t, 1024, req["max_tokens"])
	assert.EqualValues(t, 0.2, req["temperature"])
	msgs, ok := req["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	user := msgs[1].(map[string]any)
	assert.Equal(t, "I need authoritative medical information about: asthma", user["content"])
}

func TestPerplexitySearchPlainTextFallback(t *testing.T) {
	long := strings.Repeat("Asthma narrows the airways. ", 20)
	srv := newPerplexityServer(t, http.StatusOK, completionBody(long, nil), nil)
	client, err := NewPerplexityClient(PerplexityConfig{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	data, err := client.Search(context.Background(), "asthma")
	require.NoError(t, err)
	assert.Equal(t, "asthma", data.Title)
	assert.Len(t, []rune(data.Summary), 203)
	require.Len(t, data.Results, 1)
	assert.Equal(t, "https://medlineplus.gov/search?query=asthma", data.Results[0].URL)
	assert.Empty(t, data.Citations)
}

func TestPerplexitySearchUpstreamError(t *testing.T) {
	srv := newPerplexityServer(t, http.StatusUnauthorized, map[string]any{"error": map[string]any{"message": "bad key"}}, nil)
	client, err := NewPerplexityClient(PerplexityConfig{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.Search(context.Background(), "asthma")
	require.Error(t, err)
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, http.StatusUnauthorized, perr.Status)
}

func TestParseSearchContentStripsFences(t *testing.T) {
	data := parseSearchContent("flu", "```json\n{\"title\":\"Influenza\",\"summary\":\"Seasonal virus.\"}\n```")
	assert.Equal(t, "Influenza", data.Title)
	assert.Equal(t, "Seasonal virus.", data.Summary)
	assert.NotNil(t, data.Results)
}
