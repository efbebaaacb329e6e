// Package speaker plays synthesized speech on the local sound card. It
// needs cgo and an audio device, so only command line tools import it.
package speaker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
	"github.com/wolfman30/medassist/internal/voice"
)

// Player implements voice.Player on the default output device. The device
// is opened on first use at that clip's sample rate; later clips are
// resampled to it.
type Player struct {
	once    sync.Once
	initErr error
	rate    beep.SampleRate
}

var _ voice.Player = (*Player)(nil)

func New() *Player { return &Player{} }

func (p *Player) Play(ctx context.Context, a voice.Audio) error {
	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
		err      error
	)
	switch a.Format {
	case voice.FormatMP3:
		streamer, format, err = mp3.Decode(a.Body)
	case voice.FormatWAV:
		streamer, format, err = wav.Decode(a.Body)
	default:
		err = fmt.Errorf("unsupported audio format %q", a.Format)
	}
	if err != nil {
		return fmt.Errorf("speaker: decode: %w", err)
	}
	defer streamer.Close()

	p.once.Do(func() {
		p.rate = format.SampleRate
		p.initErr = speaker.Init(p.rate, p.rate.N(time.Second/10))
	})
	if p.initErr != nil {
		return fmt.Errorf("speaker: init: %w", p.initErr)
	}

	var src beep.Streamer = streamer
	if format.SampleRate != p.rate {
		src = beep.Resample(4, format.SampleRate, p.rate, streamer)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(src, beep.Callback(func() { close(done) })))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}
