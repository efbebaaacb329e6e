package bootstrap

import (
	"context"
	"testing"

	appconfig "github.com/wolfman30/medassist/internal/config"
	"github.com/wolfman30/medassist/internal/voice"
	"github.com/wolfman30/medassist/pkg/logging"
)

func TestBuildPreferencesFromConfig(t *testing.T) {
	prefs := BuildPreferences(&appconfig.Config{VoiceDefaultGender: "male", VoiceDefaultAccent: "British"})
	got := prefs.Get()
	if got.Gender != voice.GenderMale || got.Accent != "British" || !got.Variation {
		t.Fatalf("unexpected preference: %+v", got)
	}

	if got := BuildPreferences(nil).Get(); got.Gender != voice.GenderFemale || got.Accent != voice.AccentIndian {
		t.Fatalf("expected defaults, got %+v", got)
	}
}

func TestBuildSynthesizerPrefersElevenLabs(t *testing.T) {
	cfg := &appconfig.Config{ElevenLabsAPIKey: "xi-test", EspeakBinary: "espeak-ng-missing-for-test"}
	synth := BuildSynthesizer(cfg, logging.New("error"))
	if synth == nil || synth.Kind() != voice.KindRemote {
		t.Fatalf("expected remote synthesizer, got %v", synth)
	}
}

func TestBuildVoiceWithoutProviders(t *testing.T) {
	cfg := &appconfig.Config{EspeakBinary: "espeak-ng-missing-for-test"}
	stack := BuildVoice(context.Background(), cfg, logging.New("error"), nil)
	if stack.Synth != nil {
		t.Fatalf("expected no synthesizer")
	}
	if stack.Engines(nil, nil) != nil {
		t.Fatalf("expected nil engine factory")
	}
	if stack.Handler == nil || stack.Listen == nil {
		t.Fatalf("expected handlers to be built")
	}
	if err := stack.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
}

func TestVoiceStackEngines(t *testing.T) {
	cfg := &appconfig.Config{ElevenLabsAPIKey: "xi-test"}
	stack := BuildVoice(context.Background(), cfg, logging.New("error"), nil)
	factory := stack.Engines(logging.New("error"), nil)
	if factory == nil {
		t.Fatalf("expected engine factory")
	}
	player := voice.NewStreamPlayer(voice.FrameSinkFunc(func(context.Context, []byte) error { return nil }), voice.StreamPlayerConfig{})
	if engine := factory(player); engine == nil || engine.Speaking() {
		t.Fatalf("expected idle engine")
	}
}
