package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lloro-ai/lloro/internal/model/chat"
	"github.com/lloro-ai/lloro/internal/service/pin"
	"github.com/lloro-ai/lloro/internal/service/session"
)

var (
	// ErrEmptyMessage rejects a turn with no text.
	ErrEmptyMessage = errors.New("message text is empty")
	// ErrTurnInFlight rejects a second concurrent turn for one session.
	ErrTurnInFlight = errors.New("a turn is already in flight for this session")
)

// Backend is the slice of the RPC surface a chat turn needs.
type Backend interface {
	Chat(ctx context.Context, message, contextBundle string) (string, error)
}

// Orchestrator composes a user message, the session's due pinned contexts
// and the backend Chat call into one turn, and keeps session state
// consistent on both outcomes.
type Orchestrator struct {
	store   *session.Store
	pins    *pin.Pinner
	backend Backend
	logger  *zap.Logger

	mu       sync.Mutex
	inflight map[string]bool
}

// NewOrchestrator wires the turn pipeline.
func NewOrchestrator(store *session.Store, pins *pin.Pinner, backend Backend, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		store:    store,
		pins:     pins,
		backend:  backend,
		logger:   logger,
		inflight: make(map[string]bool),
	}
}

// SendTurn runs one chat turn for the session and returns the assistant
// reply. The user message is appended and persisted before the call; the
// assistant message and the sent marks for delivered contexts are
// finalized only after the backend accepts. A failed call aborts the
// delivery (contexts return to pending) and appends nothing.
func (o *Orchestrator) SendTurn(ctx context.Context, sessionID, userText string) (string, error) {
	userText = strings.TrimSpace(userText)
	if userText == "" {
		return "", ErrEmptyMessage
	}
	if !o.acquire(sessionID) {
		return "", ErrTurnInFlight
	}
	defer o.releaseTurn(sessionID)

	err := o.store.Mutate(ctx, sessionID, func(s *chat.Session) {
		s.Append(chat.RoleUser, userText, time.Now().UTC())
	})
	if err != nil {
		return "", err
	}

	delivery, err := o.pins.BeginDelivery(sessionID)
	if err != nil {
		return "", err
	}

	bundle := delivery.Bundle()
	o.logger.Debug("sending turn",
		zap.String("session", sessionID),
		zap.Int("contextLen", len(bundle)),
		zap.Int("contexts", len(delivery.Contexts())))

	reply, err := o.backend.Chat(ctx, userText, bundle)
	if err != nil {
		delivery.Abort()
		return "", err
	}

	if err := delivery.Confirm(ctx); err != nil {
		return reply, err
	}
	err = o.store.Mutate(ctx, sessionID, func(s *chat.Session) {
		s.Append(chat.RoleAssistant, reply, time.Now().UTC())
	})
	return reply, err
}

func (o *Orchestrator) acquire(sessionID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inflight[sessionID] {
		return false
	}
	o.inflight[sessionID] = true
	return true
}

func (o *Orchestrator) releaseTurn(sessionID string) {
	o.mu.Lock()
	delete(o.inflight, sessionID)
	o.mu.Unlock()
}
