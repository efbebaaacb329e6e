package voice

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/wolfman30/medassist/internal/observability/metrics"
	"github.com/wolfman30/medassist/pkg/logging"
)

const maxSpeechBytes = 10 << 20

// HandlerConfig wires the voice HTTP endpoints. Remote may be nil, in
// which case the catalog and TTS endpoints answer 503.
type HandlerConfig struct {
	Preferences *PreferenceStore
	Remote      Synthesizer
	Catalog     *Catalog
	Logger      *logging.Logger
	Metrics     *metrics.ChatMetrics
}

// Handler serves voice preferences, the remote voice catalog and one-shot
// text-to-speech.
type Handler struct {
	prefs   *PreferenceStore
	remote  Synthesizer
	catalog *Catalog
	logger  *logging.Logger
	metrics *metrics.ChatMetrics

	rngMu sync.Mutex
	rng   *rand.Rand
}

type errorResponse struct {
	Message string `json:"message"`
}

type speechRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voiceId,omitempty"`
}

func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Preferences == nil {
		cfg.Preferences = NewPreferenceStore(DefaultPreference())
	}
	if cfg.Remote != nil && cfg.Catalog == nil {
		cfg.Catalog = NewCatalog(cfg.Remote)
	}
	return &Handler{
		prefs:   cfg.Preferences,
		remote:  cfg.Remote,
		catalog: cfg.Catalog,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Voices handles GET /api/voices.
func (h *Handler) Voices(w http.ResponseWriter, r *http.Request) {
	if h.remote == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Message: "Remote voices are not configured"})
		return
	}
	voices, err := h.catalog.Voices(r.Context())
	if err != nil {
		h.logger.Error("failed to load voice catalog", "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Message: "Voice catalog unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"voices": voices})
}

// GetPreferences handles GET /api/voice/preferences.
func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.prefs.Get())
}

// UpdatePreferences handles PUT /api/voice/preferences.
func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var update PreferenceUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Invalid request body"})
		return
	}
	pref, err := h.prefs.Update(update)
	if errors.Is(err, ErrInvalidPreference) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Invalid voice preference"})
		return
	}
	if err != nil {
		h.logger.Error("failed to update voice preference", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "Failed to update voice preference"})
		return
	}
	writeJSON(w, http.StatusOK, pref)
}

// Speech handles POST /api/tts and answers with MP3 bytes.
func (h *Handler) Speech(w http.ResponseWriter, r *http.Request) {
	var req speechRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Invalid request body"})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "No text provided"})
		return
	}
	if h.remote == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Message: "Speech synthesis is not configured"})
		return
	}

	var override *Voice
	if req.VoiceID != "" {
		v, ok := h.catalog.Lookup(req.VoiceID)
		if !ok {
			v = Voice{ID: req.VoiceID}
		}
		override = &v
	}
	pref := h.prefs.Get()
	v := ResolveVoice(r.Context(), h.catalog, KindRemote, pref, override, h.logger)

	h.rngMu.Lock()
	params := RemoteParams(pref, h.rng)
	h.rngMu.Unlock()

	audio, err := h.remote.Synthesize(r.Context(), req.Text, v, params)
	if err != nil {
		h.metrics.ObserveSynthesis(string(KindRemote), "error")
		h.logger.Error("speech synthesis failed", "voice_id", v.ID, "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Message: "Speech synthesis failed"})
		return
	}
	defer audio.Body.Close()

	data, err := io.ReadAll(io.LimitReader(audio.Body, maxSpeechBytes))
	if err != nil {
		h.metrics.ObserveSynthesis(string(KindRemote), "error")
		h.logger.Error("failed to read synthesized audio", "voice_id", v.ID, "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Message: "Speech synthesis failed"})
		return
	}
	h.metrics.ObserveSynthesis(string(KindRemote), "ok")

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("X-Voice-Id", v.ID)
	if d, err := mp3Duration(data); err == nil {
		w.Header().Set("X-Audio-Duration-Ms", strconv.FormatInt(d.Milliseconds(), 10))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// mp3Duration decodes the clip far enough to learn its length. go-mp3
// always yields 16-bit stereo, so one sample frame is four bytes.
func mp3Duration(data []byte) (time.Duration, error) {
	dec, err := gomp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	frames := dec.Length() / 4
	if frames <= 0 || dec.SampleRate() <= 0 {
		return 0, errors.New("voice: empty mp3 stream")
	}
	return time.Duration(frames) * time.Second / time.Duration(dec.SampleRate()), nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
