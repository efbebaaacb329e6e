package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"github.com/wolfman30/medassist/internal/observability/metrics"
	"github.com/wolfman30/medassist/pkg/logging"
)

// ErrNotConfigured is returned when a provider has no credentials.
var ErrNotConfigured = errors.New("services: provider not configured")

// ProviderError wraps an upstream search failure.
type ProviderError struct {
	Provider string
	Status   int
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: upstream status %d: %v", e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// SearchProvider answers a medical query with structured results.
type SearchProvider interface {
	Search(ctx context.Context, query string) (SearchData, error)
}

// Searcher puts a breaker-guarded provider in front of PrepareSearchData.
// It never fails: a missing or failing provider yields the static payload.
type Searcher struct {
	provider SearchProvider
	breaker  *gobreaker.CircuitBreaker
	logger   *logging.Logger
	metrics  *metrics.ChatMetrics
}

// NewSearcher accepts a nil provider, in which case only static results are served.
func NewSearcher(provider SearchProvider, logger *logging.Logger, m *metrics.ChatMetrics) *Searcher {
	if logger == nil {
		logger = logging.Default()
	}
	s := &Searcher{provider: provider, logger: logger, metrics: m}
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "search-provider",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return s
}

// Available reports whether an augmented provider is wired in.
func (s *Searcher) Available() bool {
	return s != nil && s.provider != nil
}

func (s *Searcher) Search(ctx context.Context, query string) SearchData {
	if !s.Available() || strings.TrimSpace(query) == "" {
		return PrepareSearchData(query)
	}

	out, err := s.breaker.Execute(func() (interface{}, error) {
		return s.provider.Search(ctx, query)
	})
	if err != nil {
		status := "error"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			status = "open"
		}
		s.metrics.ObserveSearchProvider(status)
		s.logger.Warn("search provider failed, serving static results", "error", err, "status", status)
		return PrepareSearchData(query)
	}
	s.metrics.ObserveSearchProvider("ok")
	return out.(SearchData)
}
