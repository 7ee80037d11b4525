// Package session owns the authenticated-session lifecycle: server-side
// records keyed by an opaque identifier the client holds as a cookie.
package session

import (
	"context"
	"time"
)

// DefaultTTL is the absolute session lifetime.
const DefaultTTL = 24 * time.Hour

// Record is the server-side session snapshot taken at establishment.
// It is a denormalized copy of the user, not a live reference: later
// profile updates do not show up here.
type Record struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store defines how session records are stored and retrieved.
// Get returns nil without error when no record exists; store expiry or
// restart makes a session implicitly invalid.
type Store interface {
	Set(ctx context.Context, sessionID string, rec Record, ttl time.Duration) error
	Get(ctx context.Context, sessionID string) (*Record, error)
	Delete(ctx context.Context, sessionID string) error
}
