package retrieval

import "sync"

const conversationBufferCap = 20

// ConversationBuffer is the short-term, per-session memory id history
// spec.md §4.3 step 2 names as an optional candidate source when a
// session id is supplied. It is process-local and unbounded across
// sessions but capped per session.
type ConversationBuffer struct {
	mu      sync.Mutex
	history map[string][]string
}

func NewConversationBuffer() *ConversationBuffer {
	return &ConversationBuffer{history: make(map[string][]string)}
}

// Record appends the ids returned by a search under sessionID, trimming
// to the most recent conversationBufferCap.
func (b *ConversationBuffer) Record(sessionID string, ids []string) {
	if sessionID == "" || len(ids) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	hist := append(b.history[sessionID], ids...)
	if len(hist) > conversationBufferCap {
		hist = hist[len(hist)-conversationBufferCap:]
	}
	b.history[sessionID] = hist
}

// Recent returns the most recently recorded ids for a session, most
// recent last.
func (b *ConversationBuffer) Recent(sessionID string) []string {
	if sessionID == "" {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.history[sessionID]...)
}
