package chat

// Snapshot is the single persisted record holding every session plus the
// active-session pointer. Invariant: when Sessions is non-empty,
// CurrentSessionID references one of its keys. Snapshots are written whole;
// a reader never observes a half-written store.
type Snapshot struct {
	CurrentSessionID string              `json:"currentSessionId"`
	Sessions         map[string]*Session `json:"sessions"`
}

// EmptySnapshot returns a snapshot with no sessions.
func EmptySnapshot() *Snapshot {
	return &Snapshot{Sessions: make(map[string]*Session)}
}

// LegacySession is the pre-multi-session storage layout: one conversation,
// one optional context URL, no retained page content. It is read once at
// startup, migrated into a Session, and erased.
type LegacySession struct {
	Messages     []LegacyMessage `json:"messages"`
	ContextURL   string          `json:"contextUrl"`
	ContextTitle string          `json:"contextTitle"`
	Model        string          `json:"model"`
}

// LegacyMessage mirrors the old transcript entry; Type carried what Role
// does now.
type LegacyMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}
