package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"github.com/wolfman30/medassist/pkg/logging"
)

const (
	DefaultElevenLabsBaseURL = "https://api.elevenlabs.io/v1"
	DefaultElevenLabsModel   = "eleven_multilingual_v2"

	defaultElevenLabsRequestTimeout = 30 * time.Second
)

type ElevenLabsConfig struct {
	APIKey     string
	BaseURL    string
	ModelID    string
	// RequestTimeout bounds the catalog call and the wait for TTS response
	// headers. Audio bodies stream for as long as playback takes.
	RequestTimeout time.Duration
	HTTPClient     *http.Client
	Logger         *logging.Logger
}

// ElevenLabsClient is the remote Synthesizer. Calls go through a circuit
// breaker so a failing provider is not hammered on every reply.
type ElevenLabsClient struct {
	apiKey  string
	baseURL string
	modelID string
	timeout time.Duration
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

var _ Synthesizer = (*ElevenLabsClient)(nil)

func NewElevenLabsClient(cfg ElevenLabsConfig) (*ElevenLabsClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultElevenLabsBaseURL
	}
	if cfg.ModelID == "" {
		cfg.ModelID = DefaultElevenLabsModel
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultElevenLabsRequestTimeout
	}
	if cfg.HTTPClient == nil {
		// No Client.Timeout: it would also cut off the body mid playback.
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.ResponseHeaderTimeout = cfg.RequestTimeout
		cfg.HTTPClient = &http.Client{Transport: transport}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	return &ElevenLabsClient{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		modelID: cfg.ModelID,
		timeout: cfg.RequestTimeout,
		http:    cfg.HTTPClient,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "elevenlabs",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			},
		}),
	}, nil
}

func (c *ElevenLabsClient) Kind() Kind { return KindRemote }

type elevenLabsVoice struct {
	VoiceID     string            `json:"voice_id"`
	Name        string            `json:"name"`
	Category    string            `json:"category"`
	Description string            `json:"description"`
	PreviewURL  string            `json:"preview_url"`
	Labels      map[string]string `json:"labels"`
}

// Voices fetches the account's catalog and infers gender and accent for
// each entry.
func (c *ElevenLabsClient) Voices(ctx context.Context) ([]Voice, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/voices", nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("xi-api-key", c.apiKey)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if err := checkStatus(resp); err != nil {
			return nil, err
		}

		var payload struct {
			Voices []elevenLabsVoice `json:"voices"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return nil, fmt.Errorf("decode voices: %w", err)
		}
		return payload.Voices, nil
	})
	if err != nil {
		return nil, fmt.Errorf("voice: elevenlabs voices: %w", err)
	}

	raw := out.([]elevenLabsVoice)
	voices := make([]Voice, 0, len(raw))
	for _, v := range raw {
		voices = append(voices, Voice{
			ID:          v.VoiceID,
			Name:        v.Name,
			Gender:      inferGender(v.Name, v.Labels),
			Accent:      inferAccent(v.Name, v.Description, v.Labels),
			Locale:      v.Labels["language"],
			Category:    v.Category,
			Description: v.Description,
			PreviewURL:  v.PreviewURL,
		})
	}
	return voices, nil
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

type ttsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// Synthesize returns an MP3 stream. The caller closes the body, which is
// read at playback pace and so has no deadline of its own beyond ctx.
func (c *ElevenLabsClient) Synthesize(ctx context.Context, text string, v Voice, p Params) (Audio, error) {
	voiceID := v.ID
	if voiceID == "" {
		voiceID = DefaultRemoteVoice.ID
	}
	body, err := json.Marshal(ttsRequest{
		Text:    text,
		ModelID: c.modelID,
		VoiceSettings: voiceSettings{
			Stability:       p.Stability,
			SimilarityBoost: p.Similarity,
			Style:           p.Style,
			UseSpeakerBoost: p.SpeakerBoost,
		},
	})
	if err != nil {
		return Audio{}, fmt.Errorf("voice: encode tts request: %w", err)
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		endpoint := c.baseURL + "/text-to-speech/" + url.PathEscape(voiceID)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "audio/mpeg")
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("xi-api-key", c.apiKey)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		if err := checkStatus(resp); err != nil {
			resp.Body.Close()
			return nil, err
		}
		return resp.Body, nil
	})
	if err != nil {
		return Audio{}, fmt.Errorf("voice: elevenlabs tts: %w", err)
	}
	return Audio{Format: FormatMP3, Body: out.(io.ReadCloser)}, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
}
