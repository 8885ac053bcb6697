package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Rylogix/VentBoard/internal/cache"
	"github.com/Rylogix/VentBoard/internal/models"
)

// SessionStore persists the current session so it survives process restarts.
type SessionStore struct {
	kv  cache.KV
	key string
}

// NewSessionStore keeps the session under "session:<namespace>" in kv.
func NewSessionStore(kv cache.KV, namespace string) *SessionStore {
	return &SessionStore{kv: kv, key: "session:" + namespace}
}

// Load returns the stored session, or nil when none is stored.
func (s *SessionStore) Load(ctx context.Context) (*models.Session, error) {
	if s == nil {
		return nil, nil
	}
	raw, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, cache.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		// A corrupt entry is the same as no session.
		return nil, nil
	}
	if session.UserID == "" {
		return nil, nil
	}
	return &session, nil
}

// Save stores session.
func (s *SessionStore) Save(ctx context.Context, session *models.Session) error {
	if s == nil || session == nil {
		return nil
	}
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, s.key, raw, 0); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Clear removes the stored session.
func (s *SessionStore) Clear(ctx context.Context) error {
	if s == nil {
		return nil
	}
	return s.kv.Delete(ctx, s.key)
}
