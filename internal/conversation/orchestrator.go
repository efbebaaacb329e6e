package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wolfman30/medassist/internal/intent"
	"github.com/wolfman30/medassist/internal/observability/metrics"
	"github.com/wolfman30/medassist/internal/services"
	"github.com/wolfman30/medassist/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// EmbeddedService is the structured payload rendered inline with a reply.
type EmbeddedService struct {
	ID    string             `json:"id"`
	Type  intent.ServiceType `json:"type"`
	Query string             `json:"query,omitempty"`
	Data  any                `json:"data"`
}

// ChatResponse is the envelope returned for every chat turn.
type ChatResponse struct {
	Message string           `json:"message"`
	Service *EmbeddedService `json:"service"`
}

// Responder produces a reply for a message given the prior turns.
type Responder interface {
	GenerateChatResponse(ctx context.Context, message string, history []ChatMessage) ChatResponse
}

// OrchestratorConfig tunes the completion request.
type OrchestratorConfig struct {
	SystemPrompt string
	MaxTokens    int32
	Temperature  float32
	Now          func() time.Time
	Logger       *logging.Logger
	Metrics      *metrics.ChatMetrics
	Tracer       trace.Tracer
}

// Orchestrator composes intent extraction, a model call and service
// payload preparation into one chat turn. It never returns an error.
type Orchestrator struct {
	llm      LLMClient
	searcher *services.Searcher
	cfg      OrchestratorConfig
	logger   *logging.Logger
	metrics  *metrics.ChatMetrics
	tracer   trace.Tracer
}

var _ Responder = (*Orchestrator)(nil)

func NewOrchestrator(llm LLMClient, searcher *services.Searcher, cfg OrchestratorConfig) *Orchestrator {
	if llm == nil {
		panic("conversation: llm client cannot be nil")
	}
	if searcher == nil {
		searcher = services.NewSearcher(nil, cfg.Logger, cfg.Metrics)
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = defaultSystemPrompt
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 500
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer("medassist.conversation")
	}
	return &Orchestrator{
		llm:      llm,
		searcher: searcher,
		cfg:      cfg,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		tracer:   cfg.Tracer,
	}
}

func (o *Orchestrator) GenerateChatResponse(ctx context.Context, message string, history []ChatMessage) (resp ChatResponse) {
	ctx, span := o.tracer.Start(ctx, "conversation.generate_chat_response")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("conversation: panic generating response: %v", r)
			span.RecordError(err)
			o.logger.Error("chat turn panicked", "error", err)
			resp = o.degraded()
		}
	}()

	screen := ScreenMessage(message)
	if screen.Blocked {
		span.SetAttributes(attribute.StringSlice("medassist.guard", screen.Labels))
		o.logger.Warn("message blocked before model call", "labels", screen.Labels, "score", screen.Score)
		return ChatResponse{Message: GuardedReply}
	}

	serviceType := intent.ClassifyIntent(message)
	span.SetAttributes(attribute.String("medassist.intent", string(serviceType)))
	o.metrics.ObserveIntent(string(serviceType))

	var (
		details intent.AppointmentDetails
		query   string
	)
	switch serviceType {
	case intent.ServiceAppointment:
		details = intent.ExtractAppointmentDetails(message, o.cfg.Now())
	case intent.ServiceSearch, intent.ServiceVideo:
		query = intent.ExtractQuery(message)
	}

	completion, err := o.llm.Complete(ctx, LLMRequest{
		System:      []string{o.cfg.SystemPrompt},
		Messages:    append(mapHistory(history), ChatMessage{Role: ChatRoleUser, Content: screen.Message}),
		MaxTokens:   o.cfg.MaxTokens,
		Temperature: o.cfg.Temperature,
	})
	if err != nil {
		span.RecordError(err)
		o.logger.Error("chat completion failed", "error", err, "intent", serviceType)
		return o.degraded()
	}
	span.SetAttributes(attribute.String("medassist.model", completion.Model))

	check := CheckReply(completion.Text)
	if len(check.Labels) > 0 {
		o.logger.Warn("model reply altered by output check", "labels", check.Labels, "model", completion.Model)
	}
	reply := check.Reply
	if strings.TrimSpace(reply) == "" {
		reply = EmptyCompletionReply
	}
	return ChatResponse{
		Message: reply,
		Service: o.buildService(ctx, serviceType, query, details),
	}
}

func (o *Orchestrator) buildService(ctx context.Context, serviceType intent.ServiceType, query string, details intent.AppointmentDetails) *EmbeddedService {
	svc := &EmbeddedService{ID: uuid.NewString(), Type: serviceType}
	switch serviceType {
	case intent.ServiceAppointment:
		svc.Data = services.PrepareAppointmentData(&details)
	case intent.ServiceSearch:
		if query == "" {
			return nil
		}
		svc.Query = query
		svc.Data = o.searcher.Search(ctx, query)
	case intent.ServiceVideo:
		if query == "" {
			return nil
		}
		svc.Query = query
		svc.Data = services.PrepareVideoData(query)
	default:
		return nil
	}
	return svc
}

func (o *Orchestrator) degraded() ChatResponse {
	o.metrics.ObserveDegradedReply()
	return ChatResponse{Message: DegradedReply}
}

// mapHistory keeps user and assistant turns with content; anything else a
// client sends is dropped.
func mapHistory(history []ChatMessage) []ChatMessage {
	out := make([]ChatMessage, 0, len(history)+1)
	for _, msg := range history {
		role := strings.ToLower(strings.TrimSpace(msg.Role))
		if role != ChatRoleUser && role != ChatRoleAssistant {
			continue
		}
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		out = append(out, ChatMessage{Role: role, Content: msg.Content})
	}
	return out
}
