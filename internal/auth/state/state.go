// Package state correlates a login initiation with its OAuth callback.
// Each pending login is a single-use record keyed by the client's session
// identifier; consuming it (success or failure) makes replay impossible.
package state

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"time"

	"sso-service/internal/auth"
)

// DefaultTTL bounds how long a pending login may wait for its callback.
const DefaultTTL = 5 * time.Minute

// Attempt is the transient pending-login record. It lives only between
// login initiation and callback verification, never longer than the TTL.
type Attempt struct {
	Provider     string `json:"provider"`
	Token        string `json:"token"`
	CodeVerifier string `json:"code_verifier,omitempty"`
}

// Store persists pending-login attempts keyed by session identifier.
// Get returns nil without error when no attempt is stored.
type Store interface {
	Set(ctx context.Context, key string, a Attempt, ttl time.Duration) error
	Get(ctx context.Context, key string) (*Attempt, error)
	Delete(ctx context.Context, key string) error
}

// Correlator issues and verifies per-attempt anti-forgery tokens.
type Correlator struct {
	store Store
	ttl   time.Duration
}

// NewCorrelator builds a correlator over the given store.
func NewCorrelator(store Store, ttl time.Duration) *Correlator {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Correlator{store: store, ttl: ttl}
}

// Issue generates a random state token and stores the pending attempt
// under the session key, replacing any previous pending login.
func (c *Correlator) Issue(ctx context.Context, key, provider, codeVerifier string) (string, error) {
	token, err := NewToken()
	if err != nil {
		return "", err
	}

	a := Attempt{
		Provider:     provider,
		Token:        token,
		CodeVerifier: codeVerifier,
	}
	if err := c.store.Set(ctx, key, a, c.ttl); err != nil {
		return "", fmt.Errorf("state: store attempt: %w", err)
	}
	return token, nil
}

// VerifyAndConsume checks the received state against the stored attempt.
// The stored attempt is removed on every path, matching or not, so a
// state value can never be verified twice. A missing attempt (session
// lost, never issued, or already consumed) is rejected outright rather
// than trusting the client-supplied value.
func (c *Correlator) VerifyAndConsume(ctx context.Context, key, received string) (*Attempt, error) {
	a, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("state: load attempt: %w", err)
	}
	if a == nil {
		return nil, fmt.Errorf("%w: no pending login", auth.ErrStateMismatch)
	}

	if err := c.store.Delete(ctx, key); err != nil {
		return nil, fmt.Errorf("state: consume attempt: %w", err)
	}

	if received == "" || subtle.ConstantTimeCompare([]byte(a.Token), []byte(received)) != 1 {
		return nil, auth.ErrStateMismatch
	}
	return a, nil
}

// NewToken generates a cryptographically random url-safe token.
// 32 bytes = 256 bits of entropy.
func NewToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("state: generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// NewVerifier generates a PKCE code verifier. The 43-character url-safe
// output satisfies RFC 7636 length and alphabet requirements.
func NewVerifier() (string, error) {
	return NewToken()
}
