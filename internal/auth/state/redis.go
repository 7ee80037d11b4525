package state

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps pending logins in Redis, letting them survive process
// restarts. Keys expire with the attempt TTL.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed pending-login store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "oauth_state:",
	}
}

func (s *RedisStore) key(k string) string {
	return s.prefix + k
}

func (s *RedisStore) Set(ctx context.Context, key string, a Attempt, ttl time.Duration) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("state: marshal attempt: %w", err)
	}
	return s.client.Set(ctx, s.key(key), data, ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Attempt, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var a Attempt
	if err := json.Unmarshal([]byte(val), &a); err != nil {
		return nil, fmt.Errorf("state: unmarshal attempt: %w", err)
	}
	return &a, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}
