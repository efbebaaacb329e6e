package webchat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wolfman30/medassist/internal/chat"
)

func TestSnapshotMessage(t *testing.T) {
	snap := chat.Snapshot{
		Messages:     []chat.Message{{ID: "1", Content: "hi"}},
		Loading:      true,
		QuickActions: []chat.QuickAction{{ID: "find-doctor", Text: "Find a doctor"}},
	}
	msg := snapshotMessage(snap)
	assert.Equal(t, "snapshot", msg.Type)
	assert.Equal(t, snap.Messages, msg.Messages)
	assert.True(t, msg.Loading)
	assert.Equal(t, snap.QuickActions, msg.QuickActions)
}

func TestSpeakingMessage(t *testing.T) {
	on := speakingMessage(true, 24000)
	assert.True(t, *on.Speaking)
	assert.Equal(t, 24000, on.SampleRate)

	off := speakingMessage(false, 24000)
	assert.False(t, *off.Speaking)
	assert.Zero(t, off.SampleRate)
}
