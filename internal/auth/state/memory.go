package state

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore keeps pending logins in process memory with TTL expiry.
// Suitable for a single-instance deployment; swap in the Redis store to
// survive restarts.
type MemoryStore struct {
	c *gocache.Cache
}

// NewMemoryStore creates an in-memory pending-login store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		c: gocache.New(DefaultTTL, 10*time.Minute),
	}
}

func (s *MemoryStore) Set(_ context.Context, key string, a Attempt, ttl time.Duration) error {
	s.c.Set(key, a, ttl)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Attempt, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return nil, nil
	}
	a := v.(Attempt)
	return &a, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.c.Delete(key)
	return nil
}
