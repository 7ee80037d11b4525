package session

import (
	"net/http"
	"time"
)

// CookieName is the transport-level session cookie. The record keyed by
// its value is what authenticates; the cookie itself is opaque.
const CookieName = "sso_session"

// CookieOptions defines how session cookies are issued.
type CookieOptions struct {
	Path     string
	HttpOnly bool
	Secure   bool
	SameSite http.SameSite
}

// normalize applies safe defaults without breaking callers.
func (o CookieOptions) normalize() CookieOptions {
	if o.Path == "" {
		o.Path = "/"
	}
	if o.SameSite == 0 {
		// Lax keeps the cookie on the provider's redirect back to us.
		o.SameSite = http.SameSiteLaxMode
	}
	o.HttpOnly = true
	return o
}

// SetCookie issues the session cookie to the client. A zero expiresAt
// produces a browser-session cookie.
func SetCookie(w http.ResponseWriter, sessionID string, expiresAt time.Time, opts CookieOptions) {
	opts = opts.normalize()

	c := &http.Cookie{
		Name:     CookieName,
		Value:    sessionID,
		Path:     opts.Path,
		HttpOnly: opts.HttpOnly,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	}
	if !expiresAt.IsZero() {
		c.Expires = expiresAt
	}
	http.SetCookie(w, c)
}

// ClearCookie removes the session cookie from the client.
func ClearCookie(w http.ResponseWriter, opts CookieOptions) {
	opts = opts.normalize()

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     opts.Path,
		MaxAge:   -1,
		HttpOnly: opts.HttpOnly,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	})
}
