package capture

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"github.com/wolfman30/medassist/pkg/logging"
	"golang.org/x/net/websocket"
)

// Command is a text frame sent by the browser.
type Command struct {
	Type string `json:"type"` // "stop", "reset"
}

// TranscriptMessage is pushed after every capture change.
type TranscriptMessage struct {
	Type       string `json:"type"`
	Transcript string `json:"transcript"`
	Listening  bool   `json:"listening"`
	State      State  `json:"state"`
}

// frame keeps the websocket payload type that websocket.Message drops.
type frame struct {
	payloadType byte
	data        []byte
}

var frameCodec = websocket.Codec{
	Marshal: func(v interface{}) ([]byte, byte, error) {
		f, ok := v.(frame)
		if !ok {
			return nil, 0, websocket.ErrNotSupported
		}
		return f.data, f.payloadType, nil
	},
	Unmarshal: func(data []byte, payloadType byte, v interface{}) error {
		f, ok := v.(*frame)
		if !ok {
			return websocket.ErrNotSupported
		}
		f.payloadType = payloadType
		f.data = data
		return nil
	},
}

// Handler serves GET /api/voice/listen. Binary frames carry audio in the
// recognizer's encoding; each connection gets its own Capture.
type Handler struct {
	recognizer Recognizer
	logger     *logging.Logger
}

func NewHandler(r Recognizer, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{recognizer: r, logger: logger}
}

func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(r.Context(), conn)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(ctx context.Context, conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var sendMu sync.Mutex
	capture := New(h.recognizer, WithLogger(h.logger))
	unsubscribe := capture.Subscribe(func(u Update) {
		sendMu.Lock()
		defer sendMu.Unlock()
		_ = websocket.JSON.Send(conn, TranscriptMessage{
			Type:       "transcript",
			Transcript: u.Transcript,
			Listening:  u.State == StateListening,
			State:      u.State,
		})
	})
	defer unsubscribe()

	if capture.State() == StateUnsupported {
		return
	}

	var audio *frameReader
	closeAudio := func() {
		if audio != nil {
			audio.Close()
			audio = nil
		}
	}
	defer func() {
		capture.StopListening()
		closeAudio()
	}()

	for {
		var f frame
		if err := frameCodec.Receive(conn, &f); err != nil {
			h.logger.Debug("capture: connection closed", "error", err)
			return
		}

		if f.payloadType == websocket.BinaryFrame {
			if capture.State() != StateListening {
				closeAudio()
				next := newFrameReader()
				if err := capture.StartListening(ctx, next); err != nil {
					h.logger.Warn("capture: failed to start listening", "error", err)
					next.Close()
					continue
				}
				audio = next
			}
			if !audio.push(f.data) {
				h.logger.Debug("capture: recognizer behind, dropped audio frame")
			}
			continue
		}

		var cmd Command
		if err := json.Unmarshal(f.data, &cmd); err != nil {
			continue
		}
		switch cmd.Type {
		case "stop":
			capture.StopListening()
			closeAudio()
		case "reset":
			capture.ResetTranscript()
		}
	}
}

const audioBacklog = 64

// frameReader turns pushed websocket frames into an io.Reader. Pushing
// never blocks; frames beyond the backlog are dropped.
type frameReader struct {
	frames  chan []byte
	once    sync.Once
	pending []byte
}

func newFrameReader() *frameReader {
	return &frameReader{frames: make(chan []byte, audioBacklog)}
}

func (r *frameReader) Read(p []byte) (int, error) {
	if len(r.pending) == 0 {
		b, ok := <-r.frames
		if !ok {
			return 0, io.EOF
		}
		r.pending = b
	}
	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

func (r *frameReader) push(b []byte) bool {
	select {
	case r.frames <- b:
		return true
	default:
		return false
	}
}

// Close ends the stream once buffered frames are read.
func (r *frameReader) Close() {
	r.once.Do(func() { close(r.frames) })
}
