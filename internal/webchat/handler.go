package webchat

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/wolfman30/medassist/internal/chat"
	"github.com/wolfman30/medassist/internal/conversation"
	"github.com/wolfman30/medassist/internal/voice"
	"github.com/wolfman30/medassist/pkg/logging"
	"golang.org/x/net/websocket"
)

// EngineFactory builds a voice engine that plays through player. Each
// connection gets its own engine so utterances never cross sessions.
type EngineFactory func(player voice.Player) *voice.Engine

// InboundMessage is what the browser sends.
type InboundMessage struct {
	Type    string `json:"type"` // "message", "clear", "quick_action", "speak", "stop_speaking", "ping"
	Content string `json:"content,omitempty"`
	ID      string `json:"id,omitempty"`
	Text    string `json:"text,omitempty"`
}

// OutboundMessage is what the browser receives. Speech audio travels as
// binary frames of 16-bit mono PCM at SampleRate.
type OutboundMessage struct {
	Type         string             `json:"type"` // "session", "snapshot", "speaking", "pong", "error"
	SessionID    string             `json:"sessionId,omitempty"`
	Messages     []chat.Message     `json:"messages,omitempty"`
	Loading      bool               `json:"loading,omitempty"`
	QuickActions []chat.QuickAction `json:"quickActions,omitempty"`
	Speaking     *bool              `json:"speaking,omitempty"`
	SampleRate   int                `json:"sampleRate,omitempty"`
	Text         string             `json:"text,omitempty"`
}

type HandlerConfig struct {
	Responder conversation.Responder
	// History is optional; without it conversations live only as long as
	// the connection.
	History chat.History
	Voice   EngineFactory
	Logger  *logging.Logger
}

// Handler serves the chat websocket and the history endpoint.
type Handler struct {
	responder conversation.Responder
	history   chat.History
	voice     EngineFactory
	logger    *logging.Logger
}

func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Handler{
		responder: cfg.Responder,
		history:   cfg.History,
		voice:     cfg.Voice,
		logger:    cfg.Logger,
	}
}

func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()
	}
	return hex.EncodeToString(b)
}

// HandleWebSocket upgrades GET /api/chat/ws.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	ctx, cancel := context.WithCancel(r.Context())
	var inflight sync.WaitGroup
	defer func() {
		cancel()
		inflight.Wait()
	}()

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sessionID = generateSessionID()
	}
	logger := h.logger.With("session_id", sessionID)
	sock := newSocket(conn, logger)
	defer sock.close()

	opts := []chat.Option{chat.WithLogger(logger)}
	if h.history != nil {
		opts = append(opts, chat.WithHistory(h.history, sessionID))
	}
	store := chat.NewStore(h.responder, opts...)
	if err := store.Restore(ctx); err != nil {
		logger.Warn("webchat: failed to restore history", "error", err)
	}

	sock.sendJSON(OutboundMessage{Type: "session", SessionID: sessionID})
	unsubscribe := store.Subscribe(func(snap chat.Snapshot) {
		sock.sendJSON(snapshotMessage(snap))
	})
	defer unsubscribe()

	var engine *voice.Engine
	if h.voice != nil {
		player := voice.NewStreamPlayer(sock, voice.StreamPlayerConfig{Realtime: true})
		engine = h.voice(player)
		id := engine.OnSpeakingChange(func(speaking bool) {
			sock.sendJSON(speakingMessage(speaking, player.SampleRate()))
		})
		defer func() {
			engine.Stop()
			engine.RemoveSpeakingCallback(id)
		}()
	}

	logger.Info("webchat: connection opened")

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			logger.Debug("webchat: connection closed", "error", err)
			return
		}

		switch msg.Type {
		case "ping":
			sock.sendJSON(OutboundMessage{Type: "pong"})
		case "message":
			if strings.TrimSpace(msg.Content) == "" {
				continue
			}
			inflight.Add(1)
			go func(content string) {
				defer inflight.Done()
				store.Send(ctx, content)
			}(msg.Content)
		case "quick_action":
			inflight.Add(1)
			go func(id string) {
				defer inflight.Done()
				store.SendQuickAction(ctx, id)
			}(msg.ID)
		case "clear":
			store.Clear(ctx)
		case "speak":
			if engine == nil {
				sock.sendJSON(OutboundMessage{Type: "error", Text: "Voice output is not available."})
				continue
			}
			done := engine.Speak(ctx, msg.Text, nil)
			inflight.Add(1)
			go func() {
				defer inflight.Done()
				if err := <-done; err != nil && ctx.Err() == nil {
					logger.Warn("webchat: speech failed", "error", err)
					sock.sendJSON(OutboundMessage{Type: "error", Text: "Sorry, I couldn't read that aloud."})
				}
			}()
		case "stop_speaking":
			if engine != nil {
				engine.Stop()
			}
		}
	}
}

// HandleHistory serves GET /api/chat/history?session=.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "session parameter required"})
		return
	}
	if h.history == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"messages": []chat.Message{}})
		return
	}

	msgs, err := h.history.Load(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("webchat: failed to load history", "session_id", sessionID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Failed to load history"})
		return
	}
	if msgs == nil {
		msgs = []chat.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": msgs})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
