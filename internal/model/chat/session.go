package chat

import "time"

// Session is one isolated conversation: its own transcript, its own pinned
// page contexts and its own model choice. Sessions are owned by the session
// store; nothing else holds a competing reference.
type Session struct {
	ID         string                    `json:"id"`
	Messages   []Message                 `json:"messages"`
	PinnedTabs map[string]*PinnedContext `json:"pinnedTabs"`
	// PinOrder records the order URLs were pinned; JSON objects do not
	// preserve key order, and delivery order must.
	PinOrder      []string  `json:"pinOrder"`
	Model         string    `json:"model"`
	Uninitialized bool      `json:"uninitialized,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	LastActiveAt  time.Time `json:"lastActiveAt"`
}

// NewSession returns an empty session for the given model.
func NewSession(id, model string, now time.Time) *Session {
	return &Session{
		ID:           id,
		Messages:     make([]Message, 0, 16),
		PinnedTabs:   make(map[string]*PinnedContext),
		PinOrder:     make([]string, 0, 4),
		Model:        model,
		CreatedAt:    now,
		LastActiveAt: now,
	}
}

// Append adds a message to the transcript.
func (s *Session) Append(role Role, text string, now time.Time) {
	s.Messages = append(s.Messages, Message{Role: role, Text: text, CreatedAt: now})
}

// Pinned reports the context pinned for url, if any.
func (s *Session) Pinned(url string) (*PinnedContext, bool) {
	if s.PinnedTabs == nil {
		return nil, false
	}
	pc, ok := s.PinnedTabs[url]
	return pc, ok
}

// AddPin records a new pinned context in insertion order. The caller must
// have checked that url is not already pinned.
func (s *Session) AddPin(pc *PinnedContext) {
	if s.PinnedTabs == nil {
		s.PinnedTabs = make(map[string]*PinnedContext)
	}
	s.PinnedTabs[pc.SourceURL] = pc
	s.PinOrder = append(s.PinOrder, pc.SourceURL)
}

// PendingPins returns the not-yet-sent contexts in pin insertion order.
func (s *Session) PendingPins() []*PinnedContext {
	var pending []*PinnedContext
	for _, url := range s.PinOrder {
		if pc, ok := s.PinnedTabs[url]; ok && !pc.Sent {
			pending = append(pending, pc)
		}
	}
	return pending
}
