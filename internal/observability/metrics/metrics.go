package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const modelAttemptsMetric = "medassist_chat_model_attempts_total"

// ChatMetrics exposes counters/histograms for the chat and speech flows.
type ChatMetrics struct {
	modelAttempts   *prometheus.CounterVec
	modelLatency    *prometheus.HistogramVec
	intents         *prometheus.CounterVec
	degradedReplies prometheus.Counter
	synthesis       *prometheus.CounterVec
	searchProvider  *prometheus.CounterVec
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		modelAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medassist",
			Subsystem: "chat",
			Name:      "model_attempts_total",
			Help:      "Chat completion attempts per candidate model",
		}, []string{"model", "status"}),
		modelLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "medassist",
			Subsystem: "chat",
			Name:      "model_latency_seconds",
			Help:      "Latency of chat completion attempts",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30},
		}, []string{"model"}),
		intents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medassist",
			Subsystem: "chat",
			Name:      "intents_total",
			Help:      "Classified message intents",
		}, []string{"intent"}),
		degradedReplies: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "medassist",
			Subsystem: "chat",
			Name:      "degraded_replies_total",
			Help:      "Replies that fell back to the apology text",
		}),
		synthesis: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medassist",
			Subsystem: "speech",
			Name:      "synthesis_total",
			Help:      "Speech synthesis requests by backend",
		}, []string{"backend", "status"}),
		searchProvider: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medassist",
			Subsystem: "search",
			Name:      "provider_total",
			Help:      "Augmented search provider calls",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.modelAttempts, m.modelLatency, m.intents, m.degradedReplies, m.synthesis, m.searchProvider)
	return m
}

func (m *ChatMetrics) ObserveModelAttempt(model, status string, seconds float64) {
	if m == nil {
		return
	}
	m.modelAttempts.WithLabelValues(model, status).Inc()
	if status == "ok" {
		m.modelLatency.WithLabelValues(model).Observe(seconds)
	}
}

func (m *ChatMetrics) ObserveIntent(intent string) {
	if m == nil {
		return
	}
	m.intents.WithLabelValues(intent).Inc()
}

func (m *ChatMetrics) ObserveDegradedReply() {
	if m == nil {
		return
	}
	m.degradedReplies.Inc()
}

func (m *ChatMetrics) ObserveSynthesis(backend, status string) {
	if m == nil {
		return
	}
	m.synthesis.WithLabelValues(backend, status).Inc()
}

func (m *ChatMetrics) ObserveSearchProvider(status string) {
	if m == nil {
		return
	}
	m.searchProvider.WithLabelValues(status).Inc()
}

// ModelAttemptCounts reads the attempt counter back out of a gatherer,
// keyed by model then status.
func ModelAttemptCounts(gatherer prometheus.Gatherer) map[string]map[string]float64 {
	out := map[string]map[string]float64{}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mfs, err := gatherer.Gather()
	if err != nil {
		return out
	}

	var family *dto.MetricFamily
	for _, mf := range mfs {
		if mf != nil && mf.GetName() == modelAttemptsMetric {
			family = mf
			break
		}
	}
	if family == nil {
		return out
	}

	for _, metric := range family.Metric {
		if metric == nil || metric.Counter == nil {
			continue
		}
		var model, status string
		for _, label := range metric.Label {
			switch label.GetName() {
			case "model":
				model = label.GetValue()
			case "status":
				status = label.GetValue()
			}
		}
		if model == "" {
			continue
		}
		if out[model] == nil {
			out[model] = map[string]float64{}
		}
		out[model][status] += metric.Counter.GetValue()
	}
	return out
}
