package session

import (
	"sync"
	"time"

	"guardian/pkg/assistant"
)

// ChatMessage is one entry of a conversation. Messages are never modified
// once appended.
type ChatMessage struct {
	ID       string             `json:"id"`
	Text     string             `json:"text"`
	FromUser bool               `json:"from_user"`
	SentAt   time.Time          `json:"sent_at"`
	Language assistant.Language `json:"language"`
}

type History struct {
	mu       sync.RWMutex
	messages []ChatMessage
}

func NewHistory() *History {
	return &History{}
}

func (h *History) Append(msg ChatMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.messages = append(h.messages, msg)
}

func (h *History) List() []ChatMessage {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.messages) == 0 {
		return nil
	}

	out := make([]ChatMessage, len(h.messages))
	copy(out, h.messages)
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.messages)
}

// Reset replaces the whole conversation with msgs.
func (h *History) Reset(msgs ...ChatMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.messages = append([]ChatMessage(nil), msgs...)
}
