package session

import (
	"context"
	"net/http"
	"time"

	"sso-service/internal/auth/state"
	"sso-service/internal/user"
)

// Manager owns the authenticated-session lifecycle: establish on login,
// read for access control, tear down on logout.
type Manager struct {
	store   Store
	pending state.Store
	ttl     time.Duration
	secure  bool
	now     func() time.Time
}

// NewManager builds a manager over the given record store. pending, when
// non-nil, lets Terminate clear leftover CSRF state kept under the same
// identifier. secure controls the cookie's Secure attribute.
func NewManager(store Store, pending state.Store, ttl time.Duration, secure bool) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		store:   store,
		pending: pending,
		ttl:     ttl,
		secure:  secure,
		now:     time.Now,
	}
}

func (m *Manager) cookieOptions() CookieOptions {
	return CookieOptions{Secure: m.secure, SameSite: http.SameSiteLaxMode}
}

// EnsureIdentifier returns the client's session identifier, minting and
// setting a fresh one when the request carries none. The identifier keys
// the pending-login state; it grants nothing by itself.
func (m *Manager) EnsureIdentifier(w http.ResponseWriter, r *http.Request) (string, error) {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	id, err := GenerateID()
	if err != nil {
		return "", err
	}
	SetCookie(w, id, time.Time{}, m.cookieOptions())
	return id, nil
}

// Establish snapshots the user into a fresh session record and hands the
// new identifier to the client. The identifier always rotates: a
// pre-login cookie value never becomes an authenticated session id.
func (m *Manager) Establish(ctx context.Context, w http.ResponseWriter, u *user.User) (string, error) {
	id, err := GenerateID()
	if err != nil {
		return "", err
	}

	now := m.now().UTC()
	rec := Record{
		UserID:    u.ID,
		Username:  u.Username,
		Provider:  u.Provider,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.Set(ctx, id, rec, m.ttl); err != nil {
		return "", err
	}

	SetCookie(w, id, rec.ExpiresAt, m.cookieOptions())
	return id, nil
}

// Current returns the session record for the request, or nil when the
// client is not authenticated. Expired records are deleted and treated
// as absent; the record's absence is the sole "not authenticated" signal.
func (m *Manager) Current(ctx context.Context, r *http.Request) (*Record, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}

	rec, err := m.store.Get(ctx, cookie.Value)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	if m.now().After(rec.ExpiresAt) {
		_ = m.store.Delete(ctx, cookie.Value)
		return nil, nil
	}
	return rec, nil
}

// Terminate removes the session record and any leftover pending-login
// state under the same identifier, then clears the cookie. Best-effort:
// the client ends up logged out regardless of prior session validity.
func (m *Manager) Terminate(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		_ = m.store.Delete(ctx, cookie.Value)
		if m.pending != nil {
			_ = m.pending.Delete(ctx, cookie.Value)
		}
	}
	ClearCookie(w, m.cookieOptions())
}
