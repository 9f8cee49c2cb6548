package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecord_AndRecent_ReturnsAppendedIDs(t *testing.T) {
	b := NewConversationBuffer()
	b.Record("session-1", []string{"mem-1", "mem-2"})
	assert.Equal(t, []string{"mem-1", "mem-2"}, b.Recent("session-1"))
}

func TestRecord_TrimsToCapacity(t *testing.T) {
	b := NewConversationBuffer()
	for i := 0; i < conversationBufferCap+5; i++ {
		b.Record("session-1", []string{"mem"})
	}
	assert.Len(t, b.Recent("session-1"), conversationBufferCap)
}

func TestRecent_EmptySessionReturnsNil(t *testing.T) {
	b := NewConversationBuffer()
	assert.Nil(t, b.Recent("unknown-session"))
}

func TestRecord_IgnoresEmptySessionID(t *testing.T) {
	b := NewConversationBuffer()
	b.Record("", []string{"mem-1"})
	assert.Nil(t, b.Recent(""))
}

func TestRecent_KeepsSessionsIndependent(t *testing.T) {
	b := NewConversationBuffer()
	b.Record("session-1", []string{"mem-1"})
	b.Record("session-2", []string{"mem-2"})
	assert.Equal(t, []string{"mem-1"}, b.Recent("session-1"))
	assert.Equal(t, []string{"mem-2"}, b.Recent("session-2"))
}
