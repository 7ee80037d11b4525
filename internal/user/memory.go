package user

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps accounts in process memory. It enforces the same
// (provider, provider_id) uniqueness as the database constraint, with
// the mutex as the serialization point, so resolution logic behaves
// identically against either backend.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	byKey  map[string]*User
	byID   map[int64]*User
}

// NewMemoryStore creates an empty in-memory account store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byKey: make(map[string]*User),
		byID:  make(map[int64]*User),
	}
}

func identityKey(provider, providerID string) string {
	return provider + "\x00" + providerID
}

func (s *MemoryStore) FindByProviderID(_ context.Context, provider, providerID string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byKey[identityKey(provider, providerID)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) Insert(_ context.Context, n NewUser, at time.Time) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := identityKey(n.Provider, n.ProviderID)
	if _, exists := s.byKey[key]; exists {
		return nil, ErrDuplicateIdentity
	}

	s.nextID++
	u := &User{
		ID:         s.nextID,
		Provider:   n.Provider,
		ProviderID: n.ProviderID,
		Username:   n.Username,
		Email:      n.Email,
		AvatarURL:  n.AvatarURL,
		CreatedAt:  at.UTC(),
		LastLogin:  at.UTC(),
	}
	s.byKey[key] = u
	s.byID[u.ID] = u

	cp := *u
	return &cp, nil
}

func (s *MemoryStore) UpdateLastLogin(_ context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	u.LastLogin = at.UTC()
	return nil
}
