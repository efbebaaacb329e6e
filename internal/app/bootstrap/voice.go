package bootstrap

import (
	"context"

	appconfig "github.com/wolfman30/medassist/internal/config"
	"github.com/wolfman30/medassist/internal/observability/metrics"
	"github.com/wolfman30/medassist/internal/voice"
	"github.com/wolfman30/medassist/internal/voice/capture"
	"github.com/wolfman30/medassist/internal/webchat"
	"github.com/wolfman30/medassist/pkg/logging"
)

// VoiceStack is everything the server needs for speech in and out.
type VoiceStack struct {
	Preferences *voice.PreferenceStore
	// Synth is what webchat engines speak with; nil disables speech.
	Synth   voice.Synthesizer
	Catalog *voice.Catalog
	Handler *voice.Handler
	Listen  *capture.Handler

	recognizer *capture.CloudSpeechRecognizer
}

// Close releases the speech client, if one was dialed.
func (s *VoiceStack) Close() error {
	if s == nil || s.recognizer == nil {
		return nil
	}
	return s.recognizer.Close()
}

// Engines returns the per-connection engine factory for webchat, or nil
// when no synthesizer is available.
func (s *VoiceStack) Engines(logger *logging.Logger, m *metrics.ChatMetrics) webchat.EngineFactory {
	if s == nil || s.Synth == nil {
		return nil
	}
	return func(player voice.Player) *voice.Engine {
		return voice.NewEngine(s.Synth, player, s.Preferences,
			voice.WithCatalog(s.Catalog),
			voice.WithEngineLogger(logger),
			voice.WithEngineMetrics(m),
		)
	}
}

// BuildPreferences seeds the process-wide voice preference from config.
func BuildPreferences(cfg *appconfig.Config) *voice.PreferenceStore {
	pref := voice.DefaultPreference()
	if cfg != nil {
		if cfg.VoiceDefaultGender != "" {
			pref.Gender = cfg.VoiceDefaultGender
		}
		if cfg.VoiceDefaultAccent != "" {
			pref.Accent = cfg.VoiceDefaultAccent
		}
	}
	return voice.NewPreferenceStore(pref)
}

// BuildSynthesizer prefers ElevenLabs and falls back to espeak-ng when the
// binary is installed. It returns nil when neither is usable.
func BuildSynthesizer(cfg *appconfig.Config, logger *logging.Logger) voice.Synthesizer {
	if cfg == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.ElevenLabsAPIKey != "" {
		remote, err := voice.NewElevenLabsClient(voice.ElevenLabsConfig{
			APIKey:  cfg.ElevenLabsAPIKey,
			BaseURL: cfg.ElevenLabsBaseURL,
			ModelID: cfg.ElevenLabsModelID,
			Logger:  logger,
		})
		if err == nil {
			return remote
		}
		logger.Warn("elevenlabs disabled", "error", err)
	}
	local := voice.NewEspeakSynthesizer(cfg.EspeakBinary)
	if local.Available() {
		return local
	}
	logger.Info("no speech synthesizer available")
	return nil
}

// BuildVoice wires preferences, synthesis and, when enabled, Cloud Speech
// capture.
func BuildVoice(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, m *metrics.ChatMetrics) *VoiceStack {
	if logger == nil {
		logger = logging.Default()
	}
	stack := &VoiceStack{
		Preferences: BuildPreferences(cfg),
		Synth:       BuildSynthesizer(cfg, logger),
	}

	var remote voice.Synthesizer
	if stack.Synth != nil {
		stack.Catalog = voice.NewCatalog(stack.Synth)
		if stack.Synth.Kind() == voice.KindRemote {
			remote = stack.Synth
		}
	}
	stack.Handler = voice.NewHandler(voice.HandlerConfig{
		Preferences: stack.Preferences,
		Remote:      remote,
		Catalog:     stack.Catalog,
		Logger:      logger,
		Metrics:     m,
	})

	var recognizer capture.Recognizer
	if cfg != nil && cfg.SpeechEnabled {
		r, err := capture.NewCloudSpeechRecognizer(ctx, capture.CloudSpeechConfig{
			Language: cfg.SpeechLanguage,
			Logger:   logger,
		})
		if err != nil {
			logger.Warn("speech recognition disabled", "error", err)
		} else {
			stack.recognizer = r
			recognizer = r
		}
	}
	stack.Listen = capture.NewHandler(recognizer, logger)
	return stack
}
