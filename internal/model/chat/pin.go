package chat

import "time"

// PinnedContext is a page's extracted content attached to a session for
// delivery with a future chat turn. A URL is pinned at most once per
// session and is never unpinned; the only mutation after creation is the
// one-way Sent transition, which happens when the content has been folded
// into a chat request the backend accepted.
type PinnedContext struct {
	SourceURL string    `json:"sourceUrl"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	PinnedAt  time.Time `json:"pinnedAt"`
	Sent      bool      `json:"sent"`
}
