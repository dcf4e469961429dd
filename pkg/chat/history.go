package chat

import "sync"

// History is the ordered conversation record for a session. It grows without
// bound for the life of the process; callers present only a bounded suffix to
// the model via Tail. There is no persistence across restarts.
type History struct {
	mu       sync.RWMutex
	messages []Message
}

// NewHistory creates an empty conversation history.
func NewHistory() *History {
	return &History{}
}

// Append adds messages to the end of the history.
func (h *History) Append(msgs ...Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.messages = append(h.messages, msgs...)
}

// Messages returns a copy of the full history in chronological order.
func (h *History) Messages() []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Tail returns a copy of the most recent n messages in their original
// chronological order. n <= 0 returns an empty slice.
func (h *History) Tail(n int) []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n <= 0 {
		return []Message{}
	}
	start := len(h.messages) - n
	if start < 0 {
		start = 0
	}
	out := make([]Message, len(h.messages)-start)
	copy(out, h.messages[start:])
	return out
}

// Len returns the number of messages recorded.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.messages)
}

// Clear drops all recorded messages.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.messages = nil
}
