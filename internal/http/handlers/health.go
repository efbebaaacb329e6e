package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/wolfman30/medassist/internal/observability/metrics"
	"github.com/wolfman30/medassist/pkg/logging"
)

// Pinger checks a backing service, such as the Redis history store.
type Pinger func(ctx context.Context) error

type HealthConfig struct {
	// Capabilities flags which providers are configured, by name.
	Capabilities map[string]bool
	// Gatherer is read for per-model attempt counts.
	Gatherer prometheus.Gatherer
	Checks   map[string]Pinger
	Logger   *logging.Logger
	Now      func() time.Time
}

// HealthHandler serves GET /api/health.
type HealthHandler struct {
	caps     map[string]bool
	gatherer prometheus.Gatherer
	checks   map[string]Pinger
	logger   *logging.Logger
	now      func() time.Time
	started  time.Time
}

type HealthResponse struct {
	Status    string                        `json:"status"`
	Timestamp time.Time                     `json:"timestamp"`
	Uptime    float64                       `json:"uptime"`
	Env       map[string]bool               `json:"env"`
	Models    map[string]map[string]float64 `json:"models"`
	Checks    map[string]string             `json:"checks,omitempty"`
}

const checkTimeout = 2 * time.Second

func NewHealthHandler(cfg HealthConfig) *HealthHandler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	caps := make(map[string]bool, len(cfg.Capabilities))
	for k, v := range cfg.Capabilities {
		caps[k] = v
	}
	return &HealthHandler{
		caps:     caps,
		gatherer: cfg.Gatherer,
		checks:   cfg.Checks,
		logger:   cfg.Logger,
		now:      cfg.Now,
		started:  cfg.Now(),
	}
}

// Health always answers 200 while the process is serving. Failing checks
// are reported in the body, not the status code.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	resp := HealthResponse{
		Status:    "ok",
		Timestamp: now.UTC(),
		Uptime:    now.Sub(h.started).Seconds(),
		Env:       h.caps,
		Models:    metrics.ModelAttemptCounts(h.gatherer),
	}

	if len(h.checks) > 0 {
		resp.Checks = make(map[string]string, len(h.checks))
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		defer cancel()
		for name, ping := range h.checks {
			if err := ping(ctx); err != nil {
				h.logger.Warn("health check failed", "check", name, "error", err)
				resp.Checks[name] = "error"
				continue
			}
			resp.Checks[name] = "ok"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}
