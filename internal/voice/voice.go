// Package voice speaks assistant replies. It picks a voice for the user's
// preference, perturbs the prosody a little on every call and plays the
// synthesized audio, with at most one utterance in flight per Engine.
package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Kind tells local synthesis (pitch and rate) apart from remote synthesis
// (stability and similarity).
type Kind string

const (
	KindLocal  Kind = "local"
	KindRemote Kind = "remote"
)

const (
	GenderFemale = "female"
	GenderMale   = "male"
)

// AccentIndian is the default accent and the one local scoring knows best.
const AccentIndian = "Indian"

// ErrNotConfigured is returned when a backend has no credentials or binary.
var ErrNotConfigured = errors.New("voice: backend not configured")

// Voice is one entry of a synthesizer's catalog.
type Voice struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Gender      string `json:"gender,omitempty"`
	Accent      string `json:"accent,omitempty"`
	Locale      string `json:"locale,omitempty"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description,omitempty"`
	PreviewURL  string `json:"previewUrl,omitempty"`
}

// Params are the per-utterance prosody settings. Local backends read
// Pitch and Rate (1.0 is neutral); remote backends read the rest.
type Params struct {
	Pitch        float64
	Rate         float64
	Stability    float64
	Similarity   float64
	Style        float64
	SpeakerBoost bool
}

type AudioFormat string

const (
	FormatMP3 AudioFormat = "mp3"
	FormatWAV AudioFormat = "wav"
)

// Audio is an encoded clip. The receiver must close Body.
type Audio struct {
	Format AudioFormat
	Body   io.ReadCloser
}

// Synthesizer turns text into audio with a given voice.
type Synthesizer interface {
	Kind() Kind
	Voices(ctx context.Context) ([]Voice, error)
	Synthesize(ctx context.Context, text string, v Voice, p Params) (Audio, error)
}

// Player renders audio. Play blocks until the clip ends or ctx is done.
type Player interface {
	Play(ctx context.Context, a Audio) error
}

// APIError is a non-2xx answer from a remote speech backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("voice: upstream status %d: %s", e.StatusCode, e.Message)
}
