package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lloro-ai/lloro/internal/config"
	"github.com/lloro-ai/lloro/internal/model/chat"
)

// migrateLegacy upgrades the old single-session record into the
// multi-session layout. The step is presence-check-then-delete: once the
// legacy key is erased a second run finds nothing and changes nothing,
// which is what makes migration idempotent. Callers hold s.mu.
func (s *Store) migrateLegacy(ctx context.Context) error {
	raw, ok, err := s.kv.Get(ctx, legacyKey)
	if err != nil {
		return fmt.Errorf("read legacy record: %w", err)
	}
	if !ok {
		return nil
	}

	var legacy chat.LegacySession
	if err := json.Unmarshal(raw, &legacy); err != nil {
		// An unreadable legacy record can never be carried forward;
		// erasing it beats failing every startup from now on.
		s.logger.Warn("dropping undecodable legacy session", zap.Error(err))
		return s.kv.Delete(ctx, legacyKey)
	}

	sess := s.legacyToSession(legacy)

	// Merge into whatever snapshot already exists so a partially migrated
	// store never loses sessions.
	snap := chat.EmptySnapshot()
	if existing, ok, err := s.kv.Get(ctx, storeKey); err != nil {
		return fmt.Errorf("read store during migration: %w", err)
	} else if ok {
		if err := json.Unmarshal(existing, &snap); err != nil {
			return fmt.Errorf("decode store during migration: %w", err)
		}
		if snap.Sessions == nil {
			snap.Sessions = make(map[string]*chat.Session)
		}
	}

	snap.Sessions[sess.ID] = sess
	snap.CurrentSessionID = sess.ID

	migrated, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode migrated store: %w", err)
	}
	if err := s.kv.Put(ctx, storeKey, migrated); err != nil {
		return fmt.Errorf("write migrated store: %w", err)
	}
	if err := s.kv.Delete(ctx, legacyKey); err != nil {
		return fmt.Errorf("erase legacy record: %w", err)
	}

	s.logger.Info("migrated legacy session",
		zap.String("id", sess.ID),
		zap.Int("messages", len(sess.Messages)),
		zap.Bool("hadContext", legacy.ContextURL != ""))
	return nil
}

// legacyToSession maps the old record onto a Session. The old layout kept
// a context URL but never the extracted content, so the synthesized pin is
// created already sent: there is nothing left to deliver.
func (s *Store) legacyToSession(legacy chat.LegacySession) *chat.Session {
	now := s.now().UTC()

	model := legacy.Model
	if model == "" {
		model = config.DefaultModel
	}

	sess := chat.NewSession(uuid.NewString(), model, now)
	for _, m := range legacy.Messages {
		role := chat.RoleUser
		if m.Type == "assistant" {
			role = chat.RoleAssistant
		}
		sess.Append(role, m.Text, now)
	}

	if legacy.ContextURL != "" {
		sess.AddPin(&chat.PinnedContext{
			SourceURL: legacy.ContextURL,
			Title:     legacy.ContextTitle,
			PinnedAt:  now,
			Sent:      true,
		})
	}

	return sess
}
