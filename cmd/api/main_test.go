package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	appconfig "github.com/wolfman30/medassist/internal/config"
	"github.com/wolfman30/medassist/pkg/logging"
)

func TestSetupMetricsExposesMetrics(t *testing.T) {
	handler, chatMetrics, reg := setupMetrics()
	if handler == nil || chatMetrics == nil || reg == nil {
		t.Fatalf("expected non-nil handler, metrics and registry")
	}

	chatMetrics.ObserveModelAttempt("llama3-8b-8192", "ok", 0.2)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "medassist_chat_model_attempts_total") {
		t.Fatalf("expected model attempt counter to be exported")
	}
	if !strings.Contains(rr.Body.String(), "go_goroutines") {
		t.Fatalf("expected runtime collectors to be exported")
	}
}

func TestBuildAppRequiresModel(t *testing.T) {
	cfg := &appconfig.Config{EspeakBinary: "espeak-ng-missing-for-test"}
	if _, err := buildApp(context.Background(), cfg, logging.New("error")); err == nil {
		t.Fatalf("expected error without any chat model")
	}
}

func TestBuildAppServesHealth(t *testing.T) {
	cfg := &appconfig.Config{
		Env:                 "test",
		GroqAPIKey:          "gsk_test",
		GroqBaseURL:         "http://127.0.0.1:1",
		ChatModels:          []string{"llama3-8b-8192"},
		ModelAttemptTimeout: time.Second,
		EspeakBinary:        "espeak-ng-missing-for-test",
		RateLimitRPS:        5,
		RateLimitBurst:      20,
	}
	a, err := buildApp(context.Background(), cfg, logging.New("error"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.close()

	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var body struct {
		Status string          `json:"status"`
		Env    map[string]bool `json:"env"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if body.Status != "ok" || !body.Env["groq"] || body.Env["elevenlabs"] {
		t.Fatalf("unexpected health body: %s", rr.Body.String())
	}

	rr = httptest.NewRecorder()
	a.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"  "}`)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for blank message, got %d", rr.Code)
	}
}

func TestNewServer(t *testing.T) {
	srv := newServer(&appconfig.Config{Port: "9090"}, http.NotFoundHandler())
	if srv.Addr != ":9090" {
		t.Fatalf("expected addr :9090, got %s", srv.Addr)
	}
	if srv.ReadHeaderTimeout != 15*time.Second || srv.IdleTimeout != 60*time.Second {
		t.Fatalf("unexpected timeouts: %+v", srv)
	}
	if srv.WriteTimeout != 0 {
		t.Fatalf("expected no write timeout for websocket sessions")
	}
}
