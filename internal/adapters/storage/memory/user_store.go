package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/PabloGalante/chatplanner/internal/domain"
)

type UserStore struct {
	mu    sync.RWMutex
	users map[domain.UserID]domain.User
}

func NewUserStore() *UserStore {
	return &UserStore{
		users: make(map[domain.UserID]domain.User),
	}
}

func (s *UserStore) GetUser(_ context.Context, id domain.UserID) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

// SaveUser upserts u, keeping the original CreatedAt of an existing record.
func (s *UserStore) SaveUser(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.users[u.ClientID]; ok && !prev.CreatedAt.IsZero() {
		u.CreatedAt = prev.CreatedAt
	}
	s.users[u.ClientID] = *u
	return nil
}

func (s *UserStore) DeleteUser(_ context.Context, id domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *UserStore) ListUsers(_ context.Context, limit int) ([]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.User, 0, len(s.users))
	for _, u := range s.users {
		u := u
		out = append(out, &u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClientID < out[j].ClientID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
