package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
)

// SessionManager loads durable sessions for the runner.
type SessionManager struct {
	Store ports.SessionStore
}

// NewSessionManager creates a new SessionManager.
func NewSessionManager(store ports.SessionStore) *SessionManager {
	return &SessionManager{Store: store}
}

// LoadOrStart loads the session with the given id or creates it with the
// initial metadata. loaded reports which happened. An empty id always
// creates an ephemeral session that is not saved.
func (sm *SessionManager) LoadOrStart(ctx context.Context, sessionID string, initial map[string]any) (*domain.Session, bool, error) {
	if sessionID == "" {
		return domain.NewSession(domain.WithMetadata(initial)), false, nil
	}

	s, err := sm.Store.Load(ctx, sessionID)
	if err == nil {
		// Resumed sessions keep their metadata; initial values would
		// overwrite progress.
		return s, true, nil
	}
	if !errors.Is(err, domain.ErrSessionNotFound) {
		return nil, false, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}

	s = domain.NewSession(domain.WithID(sessionID), domain.WithMetadata(initial))
	if err := sm.Store.Save(ctx, sessionID, s); err != nil {
		return nil, false, fmt.Errorf("failed to initialize session %s: %w", sessionID, err)
	}
	return s, false, nil
}

// Save persists s under its own id.
func (sm *SessionManager) Save(ctx context.Context, s *domain.Session) error {
	if sm.Store == nil {
		return nil
	}
	return sm.Store.Save(ctx, s.ID(), s)
}
