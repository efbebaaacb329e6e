package voice

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/wolfman30/medassist/internal/observability/metrics"
	"github.com/wolfman30/medassist/pkg/logging"
)

// SubscriptionID identifies a speaking-state callback.
type SubscriptionID uint64

type EngineOption func(*Engine)

// WithRand fixes the jitter source, mostly for tests.
func WithRand(rng Rand) EngineOption {
	return func(e *Engine) {
		if rng != nil {
			e.rng = rng
		}
	}
}

func WithEngineLogger(logger *logging.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithEngineMetrics(m *metrics.ChatMetrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithCatalog shares a voice cache between engines and handlers.
func WithCatalog(c *Catalog) EngineOption {
	return func(e *Engine) {
		if c != nil {
			e.catalog = c
		}
	}
}

type speakingSub struct {
	id SubscriptionID
	fn func(bool)
}

// Engine plays one utterance at a time. Starting a new utterance preempts
// the current one; callbacks hear true when audio starts and false when it
// ends, fails or is stopped.
//
// Callbacks run synchronously and must not call Speak, Stop or
// ToggleSpeech.
type Engine struct {
	synth   Synthesizer
	player  Player
	prefs   *PreferenceStore
	catalog *Catalog
	logger  *logging.Logger
	metrics *metrics.ChatMetrics

	rngMu sync.Mutex
	rng   Rand

	// startMu makes stop-then-start atomic across concurrent callers.
	startMu sync.Mutex

	mu       sync.Mutex
	speaking bool
	gen      uint64
	cancel   context.CancelFunc
	done     chan struct{}

	subsMu sync.Mutex
	subs   []speakingSub
	nextID SubscriptionID

	notifyMu sync.Mutex
}

func NewEngine(synth Synthesizer, player Player, prefs *PreferenceStore, opts ...EngineOption) *Engine {
	if synth == nil || player == nil {
		panic("voice: synthesizer and player are required")
	}
	if prefs == nil {
		prefs = NewPreferenceStore(DefaultPreference())
	}
	e := &Engine{
		synth:  synth,
		player: player,
		prefs:  prefs,
		logger: logging.Default(),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.catalog == nil {
		e.catalog = NewCatalog(synth)
	}
	return e
}

// Speak stops whatever is playing and speaks text. The returned channel
// yields exactly one value and is then closed: nil when the utterance
// finished or was preempted, otherwise the failure.
func (e *Engine) Speak(ctx context.Context, text string, override *Voice) <-chan error {
	e.startMu.Lock()
	defer e.startMu.Unlock()
	return e.startLocked(ctx, text, override)
}

func (e *Engine) startLocked(ctx context.Context, text string, override *Voice) <-chan error {
	result := make(chan error, 1)

	e.stopAndWait()
	uctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	e.mu.Lock()
	e.gen++
	gen := e.gen
	e.cancel = cancel
	e.done = done
	e.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()

		err := e.utter(uctx, gen, text, override)
		if err != nil && uctx.Err() != nil && ctx.Err() == nil {
			// Preempted or stopped through the engine, not by the caller.
			err = nil
		}
		e.finish(gen, err)
		result <- err
		close(result)
	}()
	return result
}

// Stop cancels the current utterance, if any, and waits for it to wind
// down. Calling it while silent does nothing.
func (e *Engine) Stop() {
	e.startMu.Lock()
	defer e.startMu.Unlock()
	e.stopAndWait()
}

// ToggleSpeech stops when an utterance is in flight, including one still
// being synthesized, and speaks text otherwise.
func (e *Engine) ToggleSpeech(ctx context.Context, text string) <-chan error {
	e.startMu.Lock()
	defer e.startMu.Unlock()

	e.mu.Lock()
	inFlight := e.cancel != nil
	e.mu.Unlock()
	if inFlight {
		e.stopAndWait()
		result := make(chan error, 1)
		result <- nil
		close(result)
		return result
	}
	return e.startLocked(ctx, text, nil)
}

func (e *Engine) Speaking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speaking
}

// OnSpeakingChange registers cb and calls it right away with the current
// state.
func (e *Engine) OnSpeakingChange(cb func(speaking bool)) SubscriptionID {
	e.subsMu.Lock()
	e.nextID++
	id := e.nextID
	e.subs = append(e.subs, speakingSub{id: id, fn: cb})
	e.subsMu.Unlock()

	e.notifyMu.Lock()
	cb(e.Speaking())
	e.notifyMu.Unlock()
	return id
}

// RemoveSpeakingCallback reports whether id was registered.
func (e *Engine) RemoveSpeakingCallback(id SubscriptionID) bool {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	for i, sub := range e.subs {
		if sub.id == id {
			e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
			return true
		}
	}
	return false
}

func (e *Engine) utter(ctx context.Context, gen uint64, text string, override *Voice) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	pref := e.prefs.Get()
	v := ResolveVoice(ctx, e.catalog, e.synth.Kind(), pref, override, e.logger)

	var params Params
	e.rngMu.Lock()
	if e.synth.Kind() == KindRemote {
		params = RemoteParams(pref, e.rng)
	} else {
		params = LocalParams(text, v, pref, e.rng)
	}
	e.rngMu.Unlock()

	audio, err := e.synth.Synthesize(ctx, text, v, params)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		e.metrics.ObserveSynthesis(string(e.synth.Kind()), "error")
		e.logger.Warn("speech synthesis failed", "voice_id", v.ID, "error", err)
		return fmt.Errorf("voice: synthesize: %w", err)
	}
	e.metrics.ObserveSynthesis(string(e.synth.Kind()), "ok")
	defer audio.Body.Close()

	if !e.markSpeaking(ctx, gen) {
		return ctx.Err()
	}
	if err := e.player.Play(ctx, audio); err != nil {
		if !errors.Is(err, context.Canceled) {
			e.logger.Warn("speech playback failed", "voice_id", v.ID, "error", err)
		}
		return fmt.Errorf("voice: play: %w", err)
	}
	return nil
}

func (e *Engine) markSpeaking(ctx context.Context, gen uint64) bool {
	e.mu.Lock()
	if ctx.Err() != nil || e.gen != gen {
		e.mu.Unlock()
		return false
	}
	changed := !e.speaking
	e.speaking = true
	e.mu.Unlock()
	if changed {
		e.notify(true)
	}
	return true
}

func (e *Engine) finish(gen uint64, err error) {
	e.mu.Lock()
	current := e.gen == gen
	wasSpeaking := current && e.speaking
	if current {
		e.speaking = false
		e.cancel = nil
		e.done = nil
	}
	e.mu.Unlock()
	if wasSpeaking || (current && err != nil) {
		e.notify(false)
	}
}

func (e *Engine) stopAndWait() {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (e *Engine) notify(speaking bool) {
	e.notifyMu.Lock()
	defer e.notifyMu.Unlock()

	e.subsMu.Lock()
	subs := append([]speakingSub(nil), e.subs...)
	e.subsMu.Unlock()
	for _, sub := range subs {
		sub.fn(speaking)
	}
}

// ResolveVoice picks the voice for one utterance: the override, else the
// selected voice id, else the best scoring catalog voice, else the
// backend default.
func ResolveVoice(ctx context.Context, catalog *Catalog, kind Kind, pref Preference, override *Voice, logger *logging.Logger) Voice {
	if override != nil && override.ID != "" {
		return *override
	}

	var voices []Voice
	if catalog != nil {
		var err error
		if voices, err = catalog.Voices(ctx); err != nil && logger != nil {
			logger.Warn("voice catalog unavailable", "kind", string(kind), "error", err)
		}
	}

	if id := pref.SelectedVoiceID; id != "" {
		for _, v := range voices {
			if v.ID == id {
				return v
			}
		}
		return Voice{ID: id}
	}

	score := ScoreLocalVoice
	if kind == KindRemote {
		score = ScoreRemoteVoice
	}
	if v, ok := BestVoice(voices, pref, score); ok {
		return v
	}
	if kind == KindRemote {
		return DefaultRemoteVoice
	}
	return Voice{}
}
