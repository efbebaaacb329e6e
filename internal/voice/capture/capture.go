// Package capture turns streamed microphone audio into a running
// transcript.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/wolfman30/medassist/pkg/logging"
)

type State string

const (
	StateIdle        State = "idle"
	StateListening   State = "listening"
	StateUnsupported State = "unsupported"
)

var (
	ErrUnsupported      = errors.New("capture: speech recognition is not supported")
	ErrAlreadyListening = errors.New("capture: already listening")
)

// Result is one recognizer hypothesis. Err set means the stream failed.
type Result struct {
	Text  string
	Final bool
	Err   error
}

// Recognizer streams audio to a speech-to-text backend. The result channel
// must be closed when the audio ends, the backend hangs up or ctx is done.
type Recognizer interface {
	Available() bool
	Recognize(ctx context.Context, audio io.Reader) (<-chan Result, error)
}

// Update is what subscribers see after every change.
type Update struct {
	State      State  `json:"state"`
	Transcript string `json:"transcript"`
}

type Option func(*Capture)

func WithLogger(logger *logging.Logger) Option {
	return func(c *Capture) {
		if logger != nil {
			c.logger = logger
		}
	}
}

type subscriber struct {
	id int
	fn func(Update)
}

// Capture is the listening state machine. Unsupported is decided once at
// construction and never left.
type Capture struct {
	recognizer Recognizer
	logger     *logging.Logger

	notifyMu sync.Mutex

	mu         sync.Mutex
	state      State
	transcript string
	session    uint64
	cancel     context.CancelFunc
	subs       []subscriber
	nextSub    int
}

func New(r Recognizer, opts ...Option) *Capture {
	c := &Capture{recognizer: r, logger: logging.Default(), state: StateIdle}
	for _, opt := range opts {
		opt(c)
	}
	if r == nil || !r.Available() {
		c.state = StateUnsupported
	}
	return c
}

// StartListening streams source to the recognizer until the source ends,
// the recognizer hangs up or StopListening is called. Final results are
// appended to the transcript; interim ones are dropped.
func (c *Capture) StartListening(ctx context.Context, source io.Reader) error {
	c.mu.Lock()
	switch c.state {
	case StateUnsupported:
		c.mu.Unlock()
		return ErrUnsupported
	case StateListening:
		c.mu.Unlock()
		return ErrAlreadyListening
	}
	sctx, cancel := context.WithCancel(ctx)
	c.session++
	session := c.session
	c.state = StateListening
	c.cancel = cancel
	c.mu.Unlock()
	c.notify()

	results, err := c.recognizer.Recognize(sctx, source)
	if err != nil {
		c.endSession(session)
		return fmt.Errorf("capture: start recognizer: %w", err)
	}
	go c.consume(sctx, session, results)
	return nil
}

// StopListening ends the current session. It does nothing unless listening.
func (c *Capture) StopListening() {
	c.mu.Lock()
	if c.state != StateListening {
		c.mu.Unlock()
		return
	}
	c.cancel()
	c.cancel = nil
	c.session++
	c.state = StateIdle
	c.mu.Unlock()
	c.notify()
}

// ResetTranscript clears the transcript and leaves the state alone.
func (c *Capture) ResetTranscript() {
	c.mu.Lock()
	c.transcript = ""
	c.mu.Unlock()
	c.notify()
}

func (c *Capture) Transcript() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript
}

func (c *Capture) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers fn and calls it once right away with the current
// state.
func (c *Capture) Subscribe(fn func(Update)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs = append(c.subs, subscriber{id: id, fn: fn})
	u := Update{State: c.state, Transcript: c.transcript}
	c.mu.Unlock()

	c.notifyMu.Lock()
	fn(u)
	c.notifyMu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, sub := range c.subs {
			if sub.id == id {
				c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
				return
			}
		}
	}
}

func (c *Capture) consume(ctx context.Context, session uint64, results <-chan Result) {
	defer c.endSession(session)
	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-results:
			if !ok {
				return
			}
			if r.Err != nil {
				c.logger.Warn("capture: recognizer stream failed", "error", r.Err)
				return
			}
			text := strings.TrimSpace(r.Text)
			if !r.Final || text == "" {
				continue
			}
			if c.appendFinal(session, text) {
				c.notify()
			}
		}
	}
}

func (c *Capture) appendFinal(session uint64, text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != session {
		return false
	}
	if c.transcript == "" {
		c.transcript = text
	} else {
		c.transcript += " " + text
	}
	return true
}

func (c *Capture) endSession(session uint64) {
	c.mu.Lock()
	if c.session != session || c.state != StateListening {
		c.mu.Unlock()
		return
	}
	c.cancel()
	c.cancel = nil
	c.state = StateIdle
	c.mu.Unlock()
	c.notify()
}

func (c *Capture) notify() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	u := Update{State: c.state, Transcript: c.transcript}
	subs := append([]subscriber(nil), c.subs...)
	c.mu.Unlock()

	for _, sub := range subs {
		sub.fn(u)
	}
}
