package session

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/lloro-ai/lloro/internal/model/chat"
	"github.com/lloro-ai/lloro/internal/rpc"
)

// sortSessions orders by most recent activity, ties broken by id so
// repeated calls agree.
func sortSessions(sessions []*chat.Session) {
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].LastActiveAt.Equal(sessions[j].LastActiveAt) {
			return sessions[i].LastActiveAt.After(sessions[j].LastActiveAt)
		}
		return sessions[i].ID < sessions[j].ID
	})
}

// Create installs a fresh session as active and persists.
func (s *Store) Create(ctx context.Context, model string) (*chat.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.createLocked(model)
	if err := s.persistLocked(ctx); err != nil {
		return nil, err
	}
	s.logger.Info("created session", zap.String("id", sess.ID), zap.String("model", sess.Model))
	return sess, nil
}

// Switch makes the session with id active and bumps its activity
// timestamp.
func (s *Store) Switch(ctx context.Context, id string) (*chat.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.snap.Sessions[id]
	if !ok {
		return nil, ErrNotFound
	}

	s.snap.CurrentSessionID = id
	sess.LastActiveAt = s.now().UTC()
	if err := s.persistLocked(ctx); err != nil {
		return nil, err
	}
	return sess, nil
}

// Delete removes the session with id and returns the session that is
// active afterwards. Deleting the active session promotes the most
// recently active survivor; deleting the last session creates a fresh one
// carrying the deleted session's model, reported through created so the
// caller can run the backend handshake on it. Deleting a non-active
// session leaves the active pointer alone.
func (s *Store) Delete(ctx context.Context, id string) (active *chat.Session, created bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doomed, ok := s.snap.Sessions[id]
	if !ok {
		return nil, false, ErrNotFound
	}

	wasActive := s.snap.CurrentSessionID == id
	delete(s.snap.Sessions, id)

	if wasActive {
		if len(s.snap.Sessions) > 0 {
			survivors := make([]*chat.Session, 0, len(s.snap.Sessions))
			for _, sess := range s.snap.Sessions {
				survivors = append(survivors, sess)
			}
			sortSessions(survivors)
			next := survivors[0]
			s.snap.CurrentSessionID = next.ID
			next.LastActiveAt = s.now().UTC()
		} else {
			s.createLocked(doomed.Model)
			created = true
		}
	}

	if err := s.persistLocked(ctx); err != nil {
		return nil, false, err
	}

	active = s.snap.Sessions[s.snap.CurrentSessionID]
	s.logger.Info("deleted session",
		zap.String("id", id),
		zap.Bool("wasActive", wasActive),
		zap.String("nowActive", s.snap.CurrentSessionID))
	return active, created, nil
}

// Description summarizes a session for list views and the delete
// confirmation prompt.
type Description struct {
	ID            string
	Model         string
	Messages      int
	PinnedPages   int
	Active        bool
	Uninitialized bool
	CreatedAt     time.Time
	LastActiveAt  time.Time
}

// Describe reports counts and metadata for the session with id.
func (s *Store) Describe(id string) (Description, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.snap.Sessions[id]
	if !ok {
		return Description{}, ErrNotFound
	}

	return Description{
		ID:            sess.ID,
		Model:         sess.Model,
		Messages:      len(sess.Messages),
		PinnedPages:   len(sess.PinnedTabs),
		Active:        s.snap.CurrentSessionID == id,
		Uninitialized: sess.Uninitialized,
		CreatedAt:     sess.CreatedAt,
		LastActiveAt:  sess.LastActiveAt,
	}, nil
}

// Initializer is the slice of the backend surface session creation needs.
type Initializer interface {
	InitSession(ctx context.Context, model string) (rpc.InitSessionResult, error)
}

// Manager is the session lifecycle controller: Store operations plus the
// backend InitSession handshake.
type Manager struct {
	store   *Store
	backend Initializer
	logger  *zap.Logger
}

// NewManager wires the lifecycle controller.
func NewManager(store *Store, backend Initializer, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{store: store, backend: backend, logger: logger}
}

// New creates a session, makes it active and asks the backend to start
// its agent with the chosen model. When the handshake fails the session
// stays active but flagged uninitialized; the flag clears the next time a
// handshake for it succeeds. The init error is returned alongside the
// live session so callers can report it.
func (m *Manager) New(ctx context.Context, model string) (*chat.Session, error) {
	sess, err := m.store.Create(ctx, model)
	if err != nil {
		return nil, err
	}
	return sess, m.initialize(ctx, sess)
}

// Switch activates the session with id. A session left uninitialized by
// an earlier failed handshake gets the handshake retried here.
func (m *Manager) Switch(ctx context.Context, id string) (*chat.Session, error) {
	sess, err := m.store.Switch(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Uninitialized {
		return sess, m.initialize(ctx, sess)
	}
	return sess, nil
}

// Delete removes the session with id; see Store.Delete for the cascade.
// When deleting the last session the fresh replacement behaves exactly
// like one made by New: the backend handshake runs, and a failure leaves
// it active but flagged uninitialized.
func (m *Manager) Delete(ctx context.Context, id string) (*chat.Session, error) {
	active, created, err := m.store.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	if created {
		return active, m.initialize(ctx, active)
	}
	return active, nil
}

// Describe delegates to the store.
func (m *Manager) Describe(id string) (Description, error) {
	return m.store.Describe(id)
}

func (m *Manager) initialize(ctx context.Context, sess *chat.Session) error {
	result, initErr := m.backend.InitSession(ctx, sess.Model)

	markErr := m.store.Mutate(ctx, sess.ID, func(s *chat.Session) {
		s.Uninitialized = initErr != nil
		if initErr == nil && result.Model != "" {
			s.Model = result.Model
		}
	})
	if markErr != nil {
		return markErr
	}

	if initErr != nil {
		m.logger.Warn("backend init failed, session left uninitialized",
			zap.String("id", sess.ID), zap.Error(initErr))
		return initErr
	}
	return nil
}
