package auth

import (
	"errors"
	"net/url"
)

// Authentication-flow error kinds. Provider and storage causes are wrapped
// with %w around these sentinels so callers can classify with errors.Is
// while the raw cause stays in server-side logs only.
var (
	ErrStateMismatch   = errors.New("oauth state mismatch")
	ErrTokenExchange   = errors.New("token exchange failed")
	ErrProfileFetch    = errors.New("profile fetch failed")
	ErrInvalidProvider = errors.New("invalid oauth provider")
	ErrMissingCode     = errors.New("missing authorization code")
)

// UserMessage maps a flow error to its sanitized user-facing text.
// Raw provider or storage error text must never reach the client.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrStateMismatch):
		return "Security error during login. Please try again."
	case errors.Is(err, ErrTokenExchange):
		return "Failed to complete login. Please try again."
	case errors.Is(err, ErrProfileFetch):
		return "Failed to retrieve your profile. Please try again."
	case errors.Is(err, ErrInvalidProvider):
		return "Invalid login provider selected."
	case errors.Is(err, ErrMissingCode):
		return "Login was incomplete. Please try again."
	default:
		return "Authentication failed. Please try again."
	}
}

// LoginRedirect builds the login-page redirect target carrying the
// URL-encoded sanitized message for err.
func LoginRedirect(err error) string {
	return "/login?error=" + url.QueryEscape(UserMessage(err))
}
