// Package chat holds the per-session conversation state: the ordered
// message list, the loading flag and the quick actions offered to the user.
package chat

import (
	"time"

	"github.com/google/uuid"
	"github.com/wolfman30/medassist/internal/conversation"
)

// WelcomeMessage opens every fresh conversation.
const WelcomeMessage = "Hello! I'm your Medical Assistant. I can help with appointments, answer medical questions, " +
	"access services, and more, all without leaving this chat. How can I help you today?"

// Message is one entry of the conversation. It is never modified after it
// is appended.
type Message struct {
	ID        string                        `json:"id"`
	Content   string                        `json:"content"`
	Role      string                        `json:"role"`
	Timestamp time.Time                     `json:"timestamp"`
	Service   *conversation.EmbeddedService `json:"service,omitempty"`
}

// QuickAction is a canned prompt the UI renders as a button.
type QuickAction struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

var defaultQuickActions = []QuickAction{
	{ID: "schedule-appointment", Text: "Schedule appointment"},
	{ID: "check-insurance", Text: "Check insurance"},
	{ID: "find-doctor", Text: "Find a doctor"},
	{ID: "medical-advice", Text: "Medical advice"},
}

// Snapshot is a copy of the store state handed to subscribers.
type Snapshot struct {
	Messages     []Message     `json:"messages"`
	Loading      bool          `json:"loading"`
	QuickActions []QuickAction `json:"quickActions"`
}

func newMessage(role, content string, at time.Time) Message {
	return Message{ID: uuid.NewString(), Role: role, Content: content, Timestamp: at.UTC()}
}
