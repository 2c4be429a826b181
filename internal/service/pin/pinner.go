package pin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lloro-ai/lloro/internal/extract"
	"github.com/lloro-ai/lloro/internal/model/chat"
	"github.com/lloro-ai/lloro/internal/service/session"
)

// ErrExtractionFailed reports that the content provider produced nothing
// for the page. The URL stays unpinned so the user may retry.
var ErrExtractionFailed = errors.New("content extraction failed")

// Pinner enforces the per-session, per-URL pinning rules: a URL is pinned
// at most once, never unpinned, and its content goes out with exactly one
// accepted chat turn.
type Pinner struct {
	store    *session.Store
	provider extract.Provider
	logger   *zap.Logger

	mu       sync.Mutex
	inflight map[string]map[string]bool // session id -> URLs staged for delivery
}

// NewPinner wires the pinning state machine.
func NewPinner(store *session.Store, provider extract.Provider, logger *zap.Logger) *Pinner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pinner{
		store:    store,
		provider: provider,
		logger:   logger,
		inflight: make(map[string]map[string]bool),
	}
}

// Pin attaches url's extracted content to the session. Pinning an
// already-pinned URL is a no-op that returns the existing record; created
// reports whether a new record was made. On extraction failure nothing is
// recorded.
func (p *Pinner) Pin(ctx context.Context, sessionID, url string) (pc *chat.PinnedContext, created bool, err error) {
	sess, err := p.store.Get(sessionID)
	if err != nil {
		return nil, false, err
	}
	if existing, ok := sess.Pinned(url); ok {
		return existing, false, nil
	}

	result, err := p.provider.Extract(ctx, url)
	if err != nil {
		if errors.Is(err, extract.ErrNoContent) {
			return nil, false, fmt.Errorf("%w: %s", ErrExtractionFailed, url)
		}
		return nil, false, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	err = p.store.Mutate(ctx, sessionID, func(s *chat.Session) {
		// Re-check under the store lock: the extraction above is a
		// suspension point.
		if existing, ok := s.Pinned(url); ok {
			pc = existing
			return
		}
		pc = &chat.PinnedContext{
			SourceURL: url,
			Title:     result.Title,
			Content:   result.Content,
			PinnedAt:  time.Now().UTC(),
		}
		s.AddPin(pc)
		created = true
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		p.logger.Info("pinned page",
			zap.String("session", sessionID),
			zap.String("url", url),
			zap.Int("contentLen", len(pc.Content)))
	}
	return pc, created, nil
}

// BeginDelivery stages every pending context of the session for one chat
// turn, in pin insertion order. Staged contexts are excluded from later
// deliveries until the turn settles: Confirm finalizes them to sent,
// Abort returns them to pending. Delivery is therefore at-most-once; a
// turn the backend never accepted loses nothing.
func (p *Pinner) BeginDelivery(sessionID string) (*Delivery, error) {
	sess, err := p.store.Get(sessionID)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	staged := p.inflight[sessionID]
	if staged == nil {
		staged = make(map[string]bool)
		p.inflight[sessionID] = staged
	}

	var contexts []*chat.PinnedContext
	for _, pc := range sess.PendingPins() {
		if staged[pc.SourceURL] {
			continue
		}
		staged[pc.SourceURL] = true
		contexts = append(contexts, pc)
	}

	return &Delivery{pinner: p, sessionID: sessionID, contexts: contexts}, nil
}

func (p *Pinner) release(sessionID string, contexts []*chat.PinnedContext) {
	p.mu.Lock()
	defer p.mu.Unlock()
	staged := p.inflight[sessionID]
	for _, pc := range contexts {
		delete(staged, pc.SourceURL)
	}
}

// Delivery is a staged hand-off of pending contexts to a single chat
// turn. Exactly one of Confirm or Abort must be called.
type Delivery struct {
	pinner    *Pinner
	sessionID string
	contexts  []*chat.PinnedContext
	settled   bool
}

// Empty reports whether the delivery carries no contexts.
func (d *Delivery) Empty() bool { return len(d.contexts) == 0 }

// Contexts returns the staged records in pin insertion order.
func (d *Delivery) Contexts() []*chat.PinnedContext { return d.contexts }

// Bundle serializes the staged contexts for the Chat request: one
// "## {title}\nURL: {url}\n\n{content}" block per page, separated by
// "---" rules. Empty deliveries serialize to the empty string.
func (d *Delivery) Bundle() string {
	if len(d.contexts) == 0 {
		return ""
	}
	blocks := make([]string, len(d.contexts))
	for i, pc := range d.contexts {
		blocks[i] = fmt.Sprintf("## %s\nURL: %s\n\n%s", pc.Title, pc.SourceURL, pc.Content)
	}
	return strings.Join(blocks, "\n\n---\n\n")
}

// Confirm finalizes the sent transition for every staged context and
// persists. Called only after the backend accepted the turn.
func (d *Delivery) Confirm(ctx context.Context) error {
	if d.settled {
		return nil
	}
	d.settled = true
	defer d.pinner.release(d.sessionID, d.contexts)

	if len(d.contexts) == 0 {
		return nil
	}
	return d.pinner.store.Mutate(ctx, d.sessionID, func(s *chat.Session) {
		for _, pc := range d.contexts {
			if rec, ok := s.Pinned(pc.SourceURL); ok {
				rec.Sent = true
			}
		}
	})
}

// Abort returns the staged contexts to pending. The records themselves
// were never mutated, so there is nothing to roll back beyond the staging
// marks.
func (d *Delivery) Abort() {
	if d.settled {
		return
	}
	d.settled = true
	d.pinner.release(d.sessionID, d.contexts)
}
