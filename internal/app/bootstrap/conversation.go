package bootstrap

import (
	"context"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	appconfig "github.com/wolfman30/medassist/internal/config"
	"github.com/wolfman30/medassist/internal/conversation"
	"github.com/wolfman30/medassist/internal/observability/metrics"
	"github.com/wolfman30/medassist/internal/services"
	"github.com/wolfman30/medassist/pkg/logging"
)

// ErrNoModels is returned when no chat provider is configured.
var ErrNoModels = errors.New("bootstrap: no chat model configured")

// BuildCandidates lists the chat models in fallback order: the Groq models
// from CHAT_MODELS, then Gemini, then Bedrock, each only when configured.
func BuildCandidates(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) ([]conversation.Candidate, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var candidates []conversation.Candidate
	if cfg.GroqAPIKey != "" {
		groq, err := conversation.NewOpenAICompatClient(conversation.OpenAICompatConfig{
			APIKey:  cfg.GroqAPIKey,
			BaseURL: cfg.GroqBaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("bootstrap: groq client: %w", err)
		}
		for _, model := range cfg.ChatModels {
			candidates = append(candidates, conversation.Candidate{Model: model, Client: groq})
		}
	} else {
		logger.Warn("GROQ_API_KEY not set; groq models disabled")
	}

	if cfg.GeminiAPIKey != "" {
		gemini, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Warn("gemini client unavailable", "error", err)
		} else {
			candidates = append(candidates, conversation.Candidate{Model: gemini.ModelID(), Client: gemini})
		}
	}

	if cfg.BedrockModelID != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			logger.Warn("bedrock disabled: failed to load aws config", "error", err)
		} else {
			bedrock := conversation.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg))
			candidates = append(candidates, conversation.Candidate{Model: cfg.BedrockModelID, Client: bedrock})
		}
	}

	if len(candidates) == 0 {
		return nil, ErrNoModels
	}
	return candidates, nil
}

// BuildSearcher wires Perplexity behind the static search payloads. A
// missing key leaves the static payloads only.
func BuildSearcher(cfg *appconfig.Config, logger *logging.Logger, m *metrics.ChatMetrics) *services.Searcher {
	if cfg == nil || cfg.PerplexityAPIKey == "" {
		return services.NewSearcher(nil, logger, m)
	}
	client, err := services.NewPerplexityClient(services.PerplexityConfig{
		APIKey:  cfg.PerplexityAPIKey,
		BaseURL: cfg.PerplexityBaseURL,
		Model:   cfg.PerplexityModel,
	})
	if err != nil {
		if logger != nil {
			logger.Warn("perplexity disabled", "error", err)
		}
		return services.NewSearcher(nil, logger, m)
	}
	return services.NewSearcher(client, logger, m)
}

// BuildOrchestrator wires the candidate chain and the searcher into the
// chat responder.
func BuildOrchestrator(ctx context.Context, cfg *appconfig.Config, searcher *services.Searcher, logger *logging.Logger, m *metrics.ChatMetrics) (*conversation.Orchestrator, error) {
	candidates, err := BuildCandidates(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	chain, err := conversation.NewCandidateChain(candidates, conversation.ChainOptions{
		AttemptTimeout: cfg.ModelAttemptTimeout,
		Logger:         logger,
		Metrics:        m,
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap: candidate chain: %w", err)
	}
	if logger != nil {
		logger.Info("chat models configured", "models", chain.Models())
	}
	return conversation.NewOrchestrator(chain, searcher, conversation.OrchestratorConfig{
		MaxTokens:   int32(cfg.ChatMaxTokens),
		Temperature: float32(cfg.ChatTemperature),
		Logger:      logger,
		Metrics:     m,
	}), nil
}
