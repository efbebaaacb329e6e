package voice

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"
)

// FrameSink receives 16-bit little-endian mono PCM, one frame per call.
type FrameSink interface {
	WriteFrame(ctx context.Context, pcm []byte) error
}

// FrameSinkFunc adapts a function to FrameSink.
type FrameSinkFunc func(ctx context.Context, pcm []byte) error

func (f FrameSinkFunc) WriteFrame(ctx context.Context, pcm []byte) error { return f(ctx, pcm) }

type StreamPlayerConfig struct {
	SampleRate int
	Frame      time.Duration
	// Realtime paces frames at playback speed so Play lasts as long as the
	// audio and a stop cuts it short.
	Realtime bool
}

// StreamPlayer decodes audio and pushes it to a FrameSink, resampled to a
// fixed rate. The webchat socket uses it to stream speech to the browser.
type StreamPlayer struct {
	sink     FrameSink
	rate     beep.SampleRate
	frame    time.Duration
	realtime bool
}

var _ Player = (*StreamPlayer)(nil)

func NewStreamPlayer(sink FrameSink, cfg StreamPlayerConfig) *StreamPlayer {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 24000
	}
	if cfg.Frame <= 0 {
		cfg.Frame = 100 * time.Millisecond
	}
	return &StreamPlayer{
		sink:     sink,
		rate:     beep.SampleRate(cfg.SampleRate),
		frame:    cfg.Frame,
		realtime: cfg.Realtime,
	}
}

// SampleRate is the rate of the frames handed to the sink.
func (p *StreamPlayer) SampleRate() int { return int(p.rate) }

func (p *StreamPlayer) Play(ctx context.Context, a Audio) error {
	streamer, format, err := decodeAudio(a)
	if err != nil {
		return err
	}
	defer streamer.Close()

	var src beep.Streamer = streamer
	if format.SampleRate != p.rate {
		src = beep.Resample(4, format.SampleRate, p.rate, streamer)
	}

	var tick <-chan time.Time
	if p.realtime {
		ticker := time.NewTicker(p.frame)
		defer ticker.Stop()
		tick = ticker.C
	}

	buf := make([][2]float64, p.rate.N(p.frame))
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, ok := src.Stream(buf)
		if n > 0 {
			if err := p.sink.WriteFrame(ctx, encodePCM16Mono(buf[:n])); err != nil {
				return fmt.Errorf("voice: write frame: %w", err)
			}
		}
		if !ok {
			break
		}
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		}
	}
	return src.Err()
}

func decodeAudio(a Audio) (beep.StreamSeekCloser, beep.Format, error) {
	var (
		s      beep.StreamSeekCloser
		format beep.Format
		err    error
	)
	switch a.Format {
	case FormatMP3:
		s, format, err = mp3.Decode(a.Body)
	case FormatWAV:
		s, format, err = wav.Decode(a.Body)
	default:
		return nil, beep.Format{}, fmt.Errorf("voice: unsupported audio format %q", a.Format)
	}
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("voice: decode %s: %w", a.Format, err)
	}
	return s, format, nil
}

// encodePCM16Mono averages the two channels and writes signed 16-bit
// little-endian samples.
func encodePCM16Mono(samples [][2]float64) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		v := clamp((s[0]+s[1])/2, -1, 1)
		binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(math.Round(v*math.MaxInt16))))
	}
	return out
}
