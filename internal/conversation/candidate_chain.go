package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"github.com/wolfman30/medassist/internal/observability/metrics"
	"github.com/wolfman30/medassist/pkg/logging"
)

// ErrModelUnavailable is returned when every candidate model failed.
var ErrModelUnavailable = errors.New("conversation: no model candidate available")

// Candidate is one model identifier served by a client. Several candidates
// may share a client (the Groq models all do).
type Candidate struct {
	Model  string
	Client LLMClient
}

// ChainOptions tunes attempt timeouts and per-candidate breakers.
type ChainOptions struct {
	AttemptTimeout   time.Duration
	BreakerThreshold uint32
	BreakerCooldown  time.Duration
	Logger           *logging.Logger
	Metrics          *metrics.ChatMetrics
}

type candidateState struct {
	Candidate
	breaker *gobreaker.CircuitBreaker
}

// CandidateChain tries candidates strictly in order and returns the first
// success. It implements LLMClient.
type CandidateChain struct {
	candidates []*candidateState
	timeout    time.Duration
	logger     *logging.Logger
	metrics    *metrics.ChatMetrics
}

func NewCandidateChain(candidates []Candidate, opts ChainOptions) (*CandidateChain, error) {
	if len(candidates) == 0 {
		return nil, errors.New("conversation: at least one model candidate is required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.BreakerThreshold == 0 {
		opts.BreakerThreshold = 3
	}
	if opts.BreakerCooldown <= 0 {
		opts.BreakerCooldown = 30 * time.Second
	}

	chain := &CandidateChain{
		timeout: opts.AttemptTimeout,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
	threshold := opts.BreakerThreshold
	for _, cand := range candidates {
		if cand.Client == nil || cand.Model == "" {
			return nil, fmt.Errorf("conversation: candidate %q is incomplete", cand.Model)
		}
		logger := opts.Logger
		chain.candidates = append(chain.candidates, &candidateState{
			Candidate: cand,
			breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
				Name:        cand.Model,
				MaxRequests: 1,
				Timeout:     opts.BreakerCooldown,
				ReadyToTrip: func(counts gobreaker.Counts) bool {
					return counts.ConsecutiveFailures >= threshold
				},
				OnStateChange: func(name string, from, to gobreaker.State) {
					logger.Warn("model circuit breaker state change", "model", name, "from", from.String(), "to", to.String())
				},
			}),
		})
	}
	return chain, nil
}

// Models lists the candidate identifiers in attempt order.
func (c *CandidateChain) Models() []string {
	out := make([]string, 0, len(c.candidates))
	for _, cand := range c.candidates {
		out = append(out, cand.Model)
	}
	return out
}

func (c *CandidateChain) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	var errs []error
	for _, cand := range c.candidates {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		resp, err := c.attempt(ctx, cand, req)
		if err == nil {
			return resp, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", cand.Model, err))
	}
	return LLMResponse{}, fmt.Errorf("%w: %w", ErrModelUnavailable, errors.Join(errs...))
}

func (c *CandidateChain) attempt(ctx context.Context, cand *candidateState, req LLMRequest) (LLMResponse, error) {
	attemptCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req.Model = cand.Model
	start := time.Now()
	out, err := cand.breaker.Execute(func() (interface{}, error) {
		return cand.Client.Complete(attemptCtx, req)
	})
	elapsed := time.Since(start).Seconds()

	if err != nil {
		status := "error"
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			status = "open"
		case errors.Is(err, context.DeadlineExceeded):
			status = "timeout"
		}
		c.metrics.ObserveModelAttempt(cand.Model, status, elapsed)
		var merr *ModelError
		if errors.As(err, &merr) && merr.Status > 0 {
			c.logger.Warn("model candidate failed", "model", cand.Model, "status", status, "http_status", merr.Status, "error", err)
		} else {
			c.logger.Warn("model candidate failed", "model", cand.Model, "status", status, "error", err)
		}
		return LLMResponse{}, err
	}

	c.metrics.ObserveModelAttempt(cand.Model, "ok", elapsed)
	resp := out.(LLMResponse)
	if resp.Model == "" {
		resp.Model = cand.Model
	}
	return resp, nil
}
