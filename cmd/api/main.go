package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/medassist/internal/api/router"
	"github.com/wolfman30/medassist/internal/app/bootstrap"
	appconfig "github.com/wolfman30/medassist/internal/config"
	"github.com/wolfman30/medassist/internal/conversation"
	"github.com/wolfman30/medassist/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/medassist/internal/http/middleware"
	"github.com/wolfman30/medassist/internal/observability/metrics"
	"github.com/wolfman30/medassist/internal/webchat"
	"github.com/wolfman30/medassist/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logger.Info("starting medassist API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()
	app, err := buildApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer app.close()

	// Create HTTP server
	srv := newServer(cfg, app.handler)

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		app.close()
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

type app struct {
	handler http.Handler
	closers []func() error
}

func (a *app) close() {
	for _, fn := range a.closers {
		_ = fn()
	}
	a.closers = nil
}

// setupMetrics registers the chat collectors and the Go runtime collectors
// on a private registry.
func setupMetrics() (http.Handler, *metrics.ChatMetrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	chatMetrics := metrics.NewChatMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), chatMetrics, reg
}

func buildApp(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*app, error) {
	metricsHandler, chatMetrics, reg := setupMetrics()

	searcher := bootstrap.BuildSearcher(cfg, logger, chatMetrics)
	orchestrator, err := bootstrap.BuildOrchestrator(ctx, cfg, searcher, logger, chatMetrics)
	if err != nil {
		return nil, err
	}

	a := &app{}
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		a.closers = append(a.closers, redisClient.Close)
	}
	voiceStack := bootstrap.BuildVoice(ctx, cfg, logger, chatMetrics)
	a.closers = append(a.closers, voiceStack.Close)

	limiter := httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	a.closers = append(a.closers, func() error { limiter.Stop(); return nil })

	a.handler = router.New(&router.Config{
		Logger:              logger,
		ConversationHandler: conversation.NewHandler(orchestrator, searcher, logger),
		VoiceHandler:        voiceStack.Handler,
		ListenHandler:       voiceStack.Listen,
		WebchatHandler: webchat.NewHandler(webchat.HandlerConfig{
			Responder: orchestrator,
			History:   bootstrap.BuildHistory(redisClient),
			Voice:     voiceStack.Engines(logger, chatMetrics),
			Logger:    logger,
		}),
		HealthHandler: handlers.NewHealthHandler(handlers.HealthConfig{
			Capabilities: cfg.Capabilities(),
			Gatherer:     reg,
			Checks:       bootstrap.BuildHealthChecks(redisClient),
			Logger:       logger,
		}),
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        limiter,
	})
	return a, nil
}

func newServer(cfg *appconfig.Config, handler http.Handler) *http.Server {
	// Websocket sessions outlive any write deadline, so only headers are bounded.
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
