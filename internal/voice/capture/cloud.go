package capture

import (
	"context"
	"errors"
	"fmt"
	"io"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/wolfman30/medassist/pkg/logging"
	"google.golang.org/api/option"
)

type Encoding string

const (
	EncodingLinear16 Encoding = "linear16"
	EncodingWebmOpus Encoding = "webm_opus"
)

const audioChunkSize = 4096

type CloudSpeechConfig struct {
	// Language defaults to en-US.
	Language string
	// Encoding defaults to 16 kHz LINEAR16.
	Encoding Encoding
	Logger   *logging.Logger
}

type streamOpener func(ctx context.Context) (speechpb.Speech_StreamingRecognizeClient, error)

// CloudSpeechRecognizer streams audio to Google Cloud Speech with interim
// results turned on.
type CloudSpeechRecognizer struct {
	client *speech.Client
	open   streamOpener
	cfg    CloudSpeechConfig
	logger *logging.Logger
}

var _ Recognizer = (*CloudSpeechRecognizer)(nil)

// NewCloudSpeechRecognizer dials the Speech API. Credentials come from
// opts or Application Default Credentials.
func NewCloudSpeechRecognizer(ctx context.Context, cfg CloudSpeechConfig, opts ...option.ClientOption) (*CloudSpeechRecognizer, error) {
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("capture: create speech client: %w", err)
	}
	r := newCloudSpeechRecognizer(func(ctx context.Context) (speechpb.Speech_StreamingRecognizeClient, error) {
		return client.StreamingRecognize(ctx)
	}, cfg)
	r.client = client
	return r, nil
}

func newCloudSpeechRecognizer(open streamOpener, cfg CloudSpeechConfig) *CloudSpeechRecognizer {
	if cfg.Language == "" {
		cfg.Language = "en-US"
	}
	if cfg.Encoding == "" {
		cfg.Encoding = EncodingLinear16
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &CloudSpeechRecognizer{open: open, cfg: cfg, logger: logger}
}

func (r *CloudSpeechRecognizer) Available() bool { return r != nil && r.open != nil }

func (r *CloudSpeechRecognizer) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

func (r *CloudSpeechRecognizer) recognitionConfig() *speechpb.RecognitionConfig {
	cfg := &speechpb.RecognitionConfig{
		LanguageCode:               r.cfg.Language,
		EnableAutomaticPunctuation: true,
	}
	switch r.cfg.Encoding {
	case EncodingWebmOpus:
		cfg.Encoding = speechpb.RecognitionConfig_WEBM_OPUS
		cfg.SampleRateHertz = 48000
	default:
		cfg.Encoding = speechpb.RecognitionConfig_LINEAR16
		cfg.SampleRateHertz = 16000
	}
	return cfg
}

func (r *CloudSpeechRecognizer) Recognize(ctx context.Context, audio io.Reader) (<-chan Result, error) {
	stream, err := r.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture: open recognize stream: %w", err)
	}
	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config:         r.recognitionConfig(),
				InterimResults: true,
			},
		},
	}); err != nil {
		return nil, fmt.Errorf("capture: send streaming config: %w", err)
	}

	go r.sendAudio(stream, audio)

	out := make(chan Result)
	go func() {
		defer close(out)
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				if ctx.Err() == nil {
					emit(ctx, out, Result{Err: fmt.Errorf("capture: receive results: %w", err)})
				}
				return
			}
			for _, res := range resp.GetResults() {
				alts := res.GetAlternatives()
				if len(alts) == 0 {
					continue
				}
				if !emit(ctx, out, Result{Text: alts[0].GetTranscript(), Final: res.GetIsFinal()}) {
					return
				}
			}
		}
	}()
	return out, nil
}

func (r *CloudSpeechRecognizer) sendAudio(stream speechpb.Speech_StreamingRecognizeClient, audio io.Reader) {
	defer func() {
		if err := stream.CloseSend(); err != nil {
			r.logger.Debug("capture: close send failed", "error", err)
		}
	}()
	buf := make([]byte, audioChunkSize)
	for {
		n, err := audio.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			if sendErr := stream.Send(&speechpb.StreamingRecognizeRequest{
				StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{AudioContent: chunk},
			}); sendErr != nil {
				r.logger.Warn("capture: send audio failed", "error", sendErr)
				return
			}
		}
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			r.logger.Warn("capture: read audio failed", "error", err)
			return
		}
	}
}

func emit(ctx context.Context, out chan<- Result, r Result) bool {
	select {
	case out <- r:
		return true
	case <-ctx.Done():
		return false
	}
}
