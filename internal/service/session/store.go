package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lloro-ai/lloro/internal/config"
	"github.com/lloro-ai/lloro/internal/model/chat"
	"github.com/lloro-ai/lloro/internal/storage"
)

// Storage keys. The legacy key predates multi-session support and only
// exists in stores written by old builds.
const (
	storeKey  = "lloro_sessions"
	legacyKey = "lloro_session"
)

var (
	// ErrNotFound reports a session-id lookup miss.
	ErrNotFound = errors.New("session not found")
)

// Store owns the persisted multi-session state: every session plus the
// active-session pointer. All mutation funnels through it, and every
// mutation is followed by a whole-snapshot write to the KV layer.
type Store struct {
	mu     sync.Mutex
	kv     storage.KV
	snap   *chat.Snapshot
	logger *zap.Logger
	now    func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the time source; tests use it to pin timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore wraps kv. Call Open before anything else.
func NewStore(kv storage.KV, logger *zap.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		kv:     kv,
		snap:   chat.EmptySnapshot(),
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open loads persisted state. Legacy single-session migration runs first,
// as an explicit one-time step, before the snapshot is read.
func (s *Store) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.migrateLegacy(ctx); err != nil {
		return err
	}

	raw, ok, err := s.kv.Get(ctx, storeKey)
	if err != nil {
		return fmt.Errorf("load store: %w", err)
	}
	if !ok {
		s.snap = chat.EmptySnapshot()
		return nil
	}

	var snap chat.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return fmt.Errorf("decode store: %w", err)
	}
	if snap.Sessions == nil {
		snap.Sessions = make(map[string]*chat.Session)
	}
	s.snap = &snap
	s.logger.Debug("store loaded", zap.Int("sessions", len(snap.Sessions)))
	return nil
}

// persistLocked writes the full snapshot. Callers hold s.mu, so the bytes
// always describe a self-consistent store.
func (s *Store) persistLocked(ctx context.Context) error {
	raw, err := json.Marshal(s.snap)
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	if err := s.kv.Put(ctx, storeKey, raw); err != nil {
		return fmt.Errorf("persist store: %w", err)
	}
	return nil
}

// Active returns the active session without side effects.
func (s *Store) Active() (*chat.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.snap.Sessions[s.snap.CurrentSessionID]
	return sess, ok
}

// EnsureActive returns the active session, creating and installing an
// empty one when the pointer is unset or dangling. It is the only place a
// missing active session is repaired; plain reads never mutate.
func (s *Store) EnsureActive(ctx context.Context, model string) (*chat.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.snap.Sessions[s.snap.CurrentSessionID]; ok {
		return sess, nil
	}

	sess := s.createLocked(model)
	if err := s.persistLocked(ctx); err != nil {
		return nil, err
	}
	s.logger.Info("created session", zap.String("id", sess.ID), zap.String("model", sess.Model))
	return sess, nil
}

// createLocked installs a fresh session as active. Callers hold s.mu and
// persist afterwards.
func (s *Store) createLocked(model string) *chat.Session {
	if model == "" {
		model = s.lastKnownModelLocked()
	}
	sess := chat.NewSession(uuid.NewString(), model, s.now().UTC())
	s.snap.Sessions[sess.ID] = sess
	s.snap.CurrentSessionID = sess.ID
	return sess
}

// lastKnownModelLocked picks the model of the most recently active
// session, falling back to the build default.
func (s *Store) lastKnownModelLocked() string {
	model := config.DefaultModel
	var newest time.Time
	for _, sess := range s.snap.Sessions {
		if sess.Model != "" && !sess.LastActiveAt.Before(newest) {
			newest = sess.LastActiveAt
			model = sess.Model
		}
	}
	return model
}

// Get returns the session with id.
func (s *Store) Get(id string) (*chat.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.snap.Sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

// List returns all sessions ordered by most recent activity, ties broken
// by id so the order is stable.
func (s *Store) List() []*chat.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := make([]*chat.Session, 0, len(s.snap.Sessions))
	for _, sess := range s.snap.Sessions {
		sessions = append(sessions, sess)
	}
	sortSessions(sessions)
	return sessions
}

// CurrentID returns the active-session pointer as persisted.
func (s *Store) CurrentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.CurrentSessionID
}

// Mutate applies fn to the session with id under the store lock, bumps
// its activity timestamp and persists the snapshot. fn must not retain
// the session past its return.
func (s *Store) Mutate(ctx context.Context, id string, fn func(*chat.Session)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.snap.Sessions[id]
	if !ok {
		return ErrNotFound
	}

	fn(sess)
	sess.LastActiveAt = s.now().UTC()
	return s.persistLocked(ctx)
}

// Close releases the underlying KV handle.
func (s *Store) Close() error {
	return s.kv.Close()
}
