package chat

import (
	"context"
	"sync"
)

// maxHistoryMessages caps what a History keeps per session.
const maxHistoryMessages = 100

// History keeps a session's messages across reconnects. It is a cache, not
// a record: implementations may expire or trim entries.
type History interface {
	Append(ctx context.Context, sessionID string, msgs ...Message) error
	Load(ctx context.Context, sessionID string) ([]Message, error)
	Clear(ctx context.Context, sessionID string) error
}

// MemoryHistory is a process-local History.
type MemoryHistory struct {
	mu       sync.Mutex
	sessions map[string][]Message
	max      int
}

func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{sessions: make(map[string][]Message), max: maxHistoryMessages}
}

func (h *MemoryHistory) Append(_ context.Context, sessionID string, msgs ...Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	list := append(h.sessions[sessionID], msgs...)
	if len(list) > h.max {
		list = append([]Message(nil), list[len(list)-h.max:]...)
	}
	h.sessions[sessionID] = list
	return nil
}

func (h *MemoryHistory) Load(_ context.Context, sessionID string) ([]Message, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Message(nil), h.sessions[sessionID]...), nil
}

func (h *MemoryHistory) Clear(_ context.Context, sessionID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, sessionID)
	return nil
}
