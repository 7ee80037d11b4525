// Package microsoft implements OAuth 2.0 authentication against the
// Microsoft identity platform (common tenant). The user profile comes
// from the Microsoft Graph API rather than an ID token.
package microsoft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"sso-service/internal/auth"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

const providerName = auth.ProviderMicrosoft

const defaultProfileURL = "https://graph.microsoft.com/v1.0/me"

// Provider implements the Microsoft authorization-code flow with PKCE.
type Provider struct {
	oauth      *oauth2.Config
	http       *http.Client
	profileURL string
}

// New builds a Microsoft provider from immutable configuration.
// redirectURL must match the URI registered with the app registration.
func New(clientID, clientSecret, redirectURL string) (*Provider, error) {
	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil, errors.New("microsoft oauth config missing required fields")
	}

	cfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     microsoft.AzureADEndpoint("common"),
		Scopes: []string{
			"openid",
			"profile",
			"email",
		},
	}

	return &Provider{
		oauth:      cfg,
		http:       &http.Client{Timeout: 10 * time.Second},
		profileURL: defaultProfileURL,
	}, nil
}

// Name returns the provider identifier used by the registry.
func (p *Provider) Name() string {
	return providerName
}

// UsesPKCE reports that Microsoft flows carry an S256 challenge.
func (p *Provider) UsesPKCE() bool {
	return true
}

// AuthCodeURL builds the authorization URL with the given state and the
// S256 challenge derived from codeVerifier.
func (p *Provider) AuthCodeURL(state, codeVerifier string) string {
	return p.oauth.AuthCodeURL(
		state,
		oauth2.S256ChallengeOption(codeVerifier),
	)
}

// ExchangeCode exchanges the authorization code for an access token,
// sending the PKCE verifier that matches the issued challenge.
func (p *Provider) ExchangeCode(ctx context.Context, code, codeVerifier string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.http)

	token, err := p.oauth.Exchange(ctx, code, oauth2.VerifierOption(codeVerifier))
	if err != nil {
		return "", fmt.Errorf("%w: microsoft: %v", auth.ErrTokenExchange, err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("%w: microsoft: empty access token", auth.ErrTokenExchange)
	}
	return token.AccessToken, nil
}

// GraphProfile is the Microsoft Graph /me response surface we consume.
type GraphProfile struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	UserPrincipalName string `json:"userPrincipalName"`
	Mail              string `json:"mail"`
}

// FetchProfile loads the Graph profile with bearer auth and normalizes it.
func (p *Provider) FetchProfile(ctx context.Context, accessToken string) (*auth.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.profileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: microsoft: %v", auth.ErrProfileFetch, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: microsoft: %v", auth.ErrProfileFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: microsoft: HTTP %d", auth.ErrProfileFetch, resp.StatusCode)
	}

	var gp GraphProfile
	if err := json.NewDecoder(resp.Body).Decode(&gp); err != nil {
		return nil, fmt.Errorf("%w: microsoft: %v", auth.ErrProfileFetch, err)
	}
	if gp.ID == "" {
		return nil, fmt.Errorf("%w: microsoft: profile missing id", auth.ErrProfileFetch)
	}

	return Normalize(gp), nil
}

// Normalize maps a Graph profile onto the canonical identity shape.
// Username falls back displayName -> userPrincipalName -> "Microsoft User".
// Microsoft exposes no avatar on this profile surface.
func Normalize(gp GraphProfile) *auth.Profile {
	username := gp.DisplayName
	if username == "" {
		username = gp.UserPrincipalName
	}
	if username == "" {
		username = "Microsoft User"
	}

	return &auth.Profile{
		Provider:   providerName,
		ProviderID: gp.ID,
		Username:   username,
		Email:      gp.Mail,
	}
}
