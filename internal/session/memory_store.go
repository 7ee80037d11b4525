package session

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore keeps session records in process memory with TTL expiry.
// Restarting the process invalidates every session.
type MemoryStore struct {
	c *gocache.Cache
}

// NewMemoryStore creates an in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		c: gocache.New(DefaultTTL, 10*time.Minute),
	}
}

func (s *MemoryStore) Set(_ context.Context, sessionID string, rec Record, ttl time.Duration) error {
	s.c.Set(sessionID, rec, ttl)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (*Record, error) {
	v, ok := s.c.Get(sessionID)
	if !ok {
		return nil, nil
	}
	rec := v.(Record)
	return &rec, nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.c.Delete(sessionID)
	return nil
}
