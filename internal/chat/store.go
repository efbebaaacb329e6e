package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/wolfman30/medassist/internal/conversation"
	"github.com/wolfman30/medassist/pkg/logging"
)

// Option configures a Store.
type Option func(*Store)

// WithHistory mirrors every appended message into h under sessionID.
func WithHistory(h History, sessionID string) Option {
	return func(s *Store) {
		s.history = h
		s.sessionID = sessionID
	}
}

func WithLogger(logger *logging.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides time.Now for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

type subscriber struct {
	id int
	fn func(Snapshot)
}

// Store owns one conversation. Sends are serialized; reads return copies.
type Store struct {
	responder conversation.Responder
	history   History
	sessionID string
	logger    *logging.Logger
	now       func() time.Time

	sendMu   sync.Mutex
	notifyMu sync.Mutex

	mu       sync.Mutex
	messages []Message
	loading  bool
	// epoch advances on Clear so replies to earlier turns are dropped.
	epoch    uint64
	subs     []subscriber
	nextSub  int
}

func NewStore(responder conversation.Responder, opts ...Option) *Store {
	if responder == nil {
		panic("chat: responder cannot be nil")
	}
	s := &Store{
		responder: responder,
		logger:    logging.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.messages = []Message{s.welcome()}
	return s
}

// Restore replaces the state with the session's saved messages, if any. A
// session with nothing saved keeps its welcome message, which is then
// written through to the history.
func (s *Store) Restore(ctx context.Context) error {
	if s.history == nil {
		return nil
	}
	saved, err := s.history.Load(ctx, s.sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if len(saved) > 0 {
		s.messages = saved
	}
	current := append([]Message(nil), s.messages...)
	s.mu.Unlock()

	if len(saved) == 0 {
		s.persist(ctx, current...)
		return nil
	}
	s.notify()
	return nil
}

func (s *Store) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Store) QuickActions() []QuickAction {
	return append([]QuickAction(nil), defaultQuickActions...)
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Send appends the user's message, asks the responder for a reply and
// appends that too. Blank content is ignored; ok reports whether a reply
// was added, which is false when the store was cleared mid turn.
func (s *Store) Send(ctx context.Context, content string) (reply Message, ok bool) {
	if strings.TrimSpace(content) == "" {
		return Message{}, false
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	user := newMessage(conversation.ChatRoleUser, content, s.now())
	s.mu.Lock()
	epoch := s.epoch
	prior := toChatHistory(s.messages)
	s.messages = append(s.messages, user)
	s.loading = true
	s.mu.Unlock()
	s.persist(ctx, user)
	s.notify()

	resp := s.responder.GenerateChatResponse(ctx, content, prior)
	reply = newMessage(conversation.ChatRoleAssistant, resp.Message, s.now())
	reply.Service = resp.Service

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return Message{}, false
	}
	s.messages = append(s.messages, reply)
	s.loading = false
	s.mu.Unlock()
	s.persist(ctx, reply)
	s.notify()

	return reply, true
}

// SendQuickAction sends the text of the quick action with the given id.
// Unknown ids and actions triggered while a reply is pending are ignored.
func (s *Store) SendQuickAction(ctx context.Context, id string) (Message, bool) {
	if s.Loading() {
		return Message{}, false
	}
	for _, action := range defaultQuickActions {
		if action.ID == id {
			return s.Send(ctx, action.Text)
		}
	}
	return Message{}, false
}

// Clear drops every message and starts over from a fresh welcome message.
// A reply still pending for an earlier turn is discarded when it arrives.
func (s *Store) Clear(ctx context.Context) {
	welcome := s.welcome()
	s.mu.Lock()
	s.epoch++
	s.messages = []Message{welcome}
	s.loading = false
	s.mu.Unlock()

	if s.history != nil {
		if err := s.history.Clear(ctx, s.sessionID); err != nil {
			s.logger.Warn("chat: failed to clear history", "session_id", s.sessionID, "error", err)
		}
	}
	s.persist(ctx, welcome)
	s.notify()
}

// Subscribe registers fn for state changes and calls it once right away
// with the current state. Calls are serialized and follow registration
// order.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notifyMu.Lock()
	fn(snap)
	s.notifyMu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) notify() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	snap := s.snapshotLocked()
	subs := append([]subscriber(nil), s.subs...)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(snap)
	}
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Messages:     append([]Message(nil), s.messages...),
		Loading:      s.loading,
		QuickActions: append([]QuickAction(nil), defaultQuickActions...),
	}
}

func (s *Store) persist(ctx context.Context, msgs ...Message) {
	if s.history == nil {
		return
	}
	if err := s.history.Append(ctx, s.sessionID, msgs...); err != nil {
		s.logger.Warn("chat: failed to persist messages", "session_id", s.sessionID, "error", err)
	}
}

func (s *Store) welcome() Message {
	return newMessage(conversation.ChatRoleAssistant, WelcomeMessage, s.now())
}

func toChatHistory(messages []Message) []conversation.ChatMessage {
	out := make([]conversation.ChatMessage, 0, len(messages))
	for _, msg := range messages {
		out = append(out, conversation.ChatMessage{Role: msg.Role, Content: msg.Content})
	}
	return out
}
