package provider

import (
	"context"

	"sso-service/internal/auth"
)

// Provider defines the contract every external identity provider must
// implement. Implementations return identity facts only and must not
// perform user creation, linking, or session management.
type Provider interface {
	// Name returns the provider identifier (e.g. "microsoft", "github").
	Name() string

	// UsesPKCE reports whether the authorization flow carries a PKCE
	// challenge. The caller generates and holds the verifier.
	UsesPKCE() bool

	// AuthCodeURL builds the provider's authorize URL with client id,
	// redirect URI, scopes, and the caller-issued state. codeVerifier is
	// empty for providers that do not use PKCE.
	AuthCodeURL(state, codeVerifier string) string

	// ExchangeCode trades the authorization code for an access token.
	// Failures surface as auth.ErrTokenExchange; the provider's raw
	// error body never reaches user-facing output.
	ExchangeCode(ctx context.Context, code, codeVerifier string) (string, error)

	// FetchProfile calls the provider's identity endpoint with bearer
	// authentication and returns the normalized profile. Failures
	// surface as auth.ErrProfileFetch.
	FetchProfile(ctx context.Context, accessToken string) (*auth.Profile, error)
}
