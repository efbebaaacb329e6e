package conversation

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/wolfman30/medassist/internal/services"
	"github.com/wolfman30/medassist/pkg/logging"
)

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message        string        `json:"message"`
	MessageHistory []ChatMessage `json:"messageHistory"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// Handler wires the chat, search and video endpoints.
type Handler struct {
	responder Responder
	searcher  *services.Searcher
	logger    *logging.Logger
}

func NewHandler(responder Responder, searcher *services.Searcher, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if searcher == nil {
		searcher = services.NewSearcher(nil, logger, nil)
	}
	return &Handler{responder: responder, searcher: searcher, logger: logger}
}

// Chat handles POST /api/chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	defer h.recoverInternal(w, "An error occurred while processing your message")

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode chat request", "error", err)
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Invalid request body"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Message: "No message provided"})
		return
	}

	resp := h.responder.GenerateChatResponse(r.Context(), req.Message, req.MessageHistory)
	h.writeJSON(w, http.StatusOK, resp)
}

// Search handles GET /api/search?query=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	defer h.recoverInternal(w, "An error occurred while searching")

	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Message: "No search query provided"})
		return
	}
	h.writeJSON(w, http.StatusOK, h.searcher.Search(r.Context(), query))
}

// Videos handles GET /api/videos?query=.
func (h *Handler) Videos(w http.ResponseWriter, r *http.Request) {
	defer h.recoverInternal(w, "An error occurred while searching for videos")

	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Message: "No video search query provided"})
		return
	}
	h.writeJSON(w, http.StatusOK, services.VideoSearch(query))
}

// recoverInternal turns a panic into a generic 500; details stay in the log.
func (h *Handler) recoverInternal(w http.ResponseWriter, message string) {
	if rec := recover(); rec != nil {
		h.logger.Error("unhandled error in handler", "panic", rec)
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Message: message})
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
