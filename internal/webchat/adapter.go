package webchat

import (
	"context"
	"sync"

	"github.com/wolfman30/medassist/internal/chat"
	"github.com/wolfman30/medassist/internal/voice"
	"github.com/wolfman30/medassist/pkg/logging"
	"golang.org/x/net/websocket"
)

// socket serializes writes to one websocket connection. Store and engine
// callbacks arrive from other goroutines than the read loop.
type socket struct {
	conn   *websocket.Conn
	logger *logging.Logger

	mu     sync.Mutex
	closed bool
}

func newSocket(conn *websocket.Conn, logger *logging.Logger) *socket {
	return &socket{conn: conn, logger: logger}
}

func (s *socket) sendJSON(msg OutboundMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if err := websocket.JSON.Send(s.conn, msg); err != nil {
		s.logger.Debug("webchat: send failed", "type", msg.Type, "error", err)
	}
}

// WriteFrame sends one PCM frame as a binary message. It makes socket a
// voice.FrameSink.
func (s *socket) WriteFrame(ctx context.Context, pcm []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return context.Canceled
	}
	return websocket.Message.Send(s.conn, pcm)
}

func (s *socket) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

var _ voice.FrameSink = (*socket)(nil)

// snapshotMessage maps store state onto the wire.
func snapshotMessage(snap chat.Snapshot) OutboundMessage {
	return OutboundMessage{
		Type:         "snapshot",
		Messages:     snap.Messages,
		Loading:      snap.Loading,
		QuickActions: snap.QuickActions,
	}
}

func speakingMessage(speaking bool, sampleRate int) OutboundMessage {
	msg := OutboundMessage{Type: "speaking", Speaking: &speaking}
	if speaking {
		msg.SampleRate = sampleRate
	}
	return msg
}
