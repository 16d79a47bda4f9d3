package memory

import (
	"context"
	"sync"

	"github.com/PabloGalante/chatplanner/internal/domain"
)

type SessionStore struct {
	mu       sync.RWMutex
	sessions map[domain.UserID]domain.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[domain.UserID]domain.Session),
	}
}

func (s *SessionStore) GetSession(_ context.Context, id domain.UserID) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &sess, nil
}

// SaveSession creates or replaces the session of session.UserID.
func (s *SessionStore) SaveSession(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.UserID] = *session
	return nil
}
