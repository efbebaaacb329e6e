package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	DefaultPerplexityBaseURL = "https://api.perplexity.ai"
	DefaultPerplexityModel   = "llama-3.1-sonar-small-128k-online"
)

const perplexitySystemPrompt = `You are a medical search assistant focused on providing accurate medical information.
For the following query, provide a structured search result with:
1. A brief summary of the topic (2-3 sentences)
2. A list of the most relevant sources with their URL and a brief snippet
3. If available, key facts about the medical topic
Please be concise, accurate, and provide only evidence-based information.
Format your response as detailed JSON with: { "summary": "...", "results": [{"title": "...", "url": "...", "displayUrl": "...", "snippet": "..."}] }`

// PerplexityConfig configures the Perplexity client.
type PerplexityConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// PerplexityClient queries Perplexity's OpenAI-compatible chat endpoint for
// online, cited medical answers.
type PerplexityClient struct {
	client openai.Client
	model  string
}

func NewPerplexityClient(cfg PerplexityConfig) (*PerplexityClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultPerplexityBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultPerplexityModel
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 20 * time.Second}
	}
	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/"),
		option.WithHTTPClient(cfg.HTTPClient),
		option.WithMaxRetries(0),
	)
	return &PerplexityClient{client: client, model: cfg.Model}, nil
}

func (c *PerplexityClient) Search(ctx context.Context, query string) (SearchData, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(perplexitySystemPrompt),
			openai.UserMessage("I need authoritative medical information about: " + query),
		},
		Temperature:      openai.Float(0.2),
		MaxTokens:        openai.Int(1024),
		FrequencyPenalty: openai.Float(1),
	},
		option.WithJSONSet("search_recency_filter", "month"),
		option.WithJSONSet("return_related_questions", false),
	)
	if err != nil {
		perr := &ProviderError{Provider: "perplexity", Err: err}
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			perr.Status = apiErr.StatusCode
		}
		return SearchData{}, perr
	}
	if len(resp.Choices) == 0 {
		return SearchData{}, &ProviderError{Provider: "perplexity", Err: errors.New("empty choices")}
	}

	data := parseSearchContent(query, resp.Choices[0].Message.Content)
	if field, ok := resp.JSON.ExtraFields["citations"]; ok {
		var citations []string
		if err := json.Unmarshal([]byte(field.Raw()), &citations); err == nil && len(citations) > 0 {
			data.Citations = citations
		}
	}
	return data, nil
}

// parseSearchContent accepts the JSON the prompt asks for and degrades to a
// summary of the raw text when the model ignores the format.
func parseSearchContent(query, content string) SearchData {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var parsed SearchData
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil && parsed.Summary != "" {
		if parsed.Title == "" {
			parsed.Title = query
		}
		if parsed.Results == nil {
			parsed.Results = []SearchResult{}
		}
		return parsed
	}

	return SearchData{
		Title:   query,
		Summary: truncate(content, 200) + "...",
		Results: []SearchResult{{
			Title:      "Medical Information",
			URL:        medlinePlusURL(query),
			DisplayURL: "medlineplus.gov",
			Snippet:    truncate(content, 150) + "...",
		}},
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
