package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/wolfman30/medassist/internal/conversation"
	"github.com/wolfman30/medassist/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/medassist/internal/http/middleware"
	"github.com/wolfman30/medassist/internal/voice"
	"github.com/wolfman30/medassist/internal/voice/capture"
	"github.com/wolfman30/medassist/internal/webchat"
	"github.com/wolfman30/medassist/pkg/logging"
)

// Config holds router configuration. Nil handlers leave their routes
// unmounted.
type Config struct {
	Logger              *logging.Logger
	ConversationHandler *conversation.Handler
	VoiceHandler        *voice.Handler
	ListenHandler       *capture.Handler
	WebchatHandler      *webchat.Handler
	HealthHandler       *handlers.HealthHandler
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string
	RateLimiter         *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		if cfg.HealthHandler != nil {
			api.Get("/health", cfg.HealthHandler.Health)
		}

		api.Group(func(limited chi.Router) {
			if cfg.RateLimiter != nil {
				limited.Use(cfg.RateLimiter.Middleware)
			}

			if h := cfg.ConversationHandler; h != nil {
				limited.Post("/chat", h.Chat)
				limited.Get("/search", h.Search)
				limited.Get("/videos", h.Videos)
			}
			if h := cfg.WebchatHandler; h != nil {
				limited.Get("/chat/ws", h.HandleWebSocket)
				limited.Get("/chat/history", h.HandleHistory)
			}
			if h := cfg.VoiceHandler; h != nil {
				limited.Get("/voices", h.Voices)
				limited.Get("/voice/preferences", h.GetPreferences)
				limited.Put("/voice/preferences", h.UpdatePreferences)
				limited.Post("/tts", h.Speech)
			}
			if h := cfg.ListenHandler; h != nil {
				limited.Get("/voice/listen", h.HandleWebSocket)
			}
		})
	})

	return r
}
