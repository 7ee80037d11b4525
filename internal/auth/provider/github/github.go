// Package github implements OAuth 2.0 authentication with GitHub.
// GitHub returns no ID token, so identity comes from the REST API; users
// with a private email need a second call to the emails endpoint.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"sso-service/internal/auth"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const providerName = auth.ProviderGitHub

const (
	defaultUserURL   = "https://api.github.com/user"
	defaultEmailsURL = "https://api.github.com/user/emails"

	userAgent = "sso-service"
)

// Provider implements the GitHub authorization-code flow.
type Provider struct {
	oauth     *oauth2.Config
	http      *http.Client
	userURL   string
	emailsURL string
}

// New builds a GitHub provider from immutable configuration.
func New(clientID, clientSecret, redirectURL string) (*Provider, error) {
	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil, errors.New("github oauth config missing required fields")
	}

	cfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     github.Endpoint,
		Scopes:       []string{"user:email"},
	}

	return &Provider{
		oauth:     cfg,
		http:      &http.Client{Timeout: 10 * time.Second},
		userURL:   defaultUserURL,
		emailsURL: defaultEmailsURL,
	}, nil
}

// Name returns the provider identifier used by the registry.
func (p *Provider) Name() string {
	return providerName
}

// UsesPKCE reports that GitHub flows run without PKCE.
func (p *Provider) UsesPKCE() bool {
	return false
}

// AuthCodeURL builds the authorization URL with the given state.
func (p *Provider) AuthCodeURL(state, _ string) string {
	return p.oauth.AuthCodeURL(state)
}

// ExchangeCode exchanges the authorization code for an access token.
func (p *Provider) ExchangeCode(ctx context.Context, code, _ string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.http)

	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("%w: github: %v", auth.ErrTokenExchange, err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("%w: github: empty access token", auth.ErrTokenExchange)
	}
	return token.AccessToken, nil
}

// UserProfile is the GitHub /user response surface we consume.
type UserProfile struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

// Email is one entry of the GitHub /user/emails response.
type Email struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// FetchProfile loads the GitHub user with bearer auth and normalizes it.
// When the profile hides the email, the emails endpoint supplies the
// primary verified address; having none leaves the email unset.
func (p *Provider) FetchProfile(ctx context.Context, accessToken string) (*auth.Profile, error) {
	var up UserProfile
	if err := p.getJSON(ctx, p.userURL, accessToken, &up); err != nil {
		return nil, err
	}
	if up.ID == 0 || up.Login == "" {
		return nil, fmt.Errorf("%w: github: profile missing id or login", auth.ErrProfileFetch)
	}

	if up.Email == "" {
		emails, err := p.fetchEmails(ctx, accessToken)
		if err != nil {
			return nil, err
		}
		up.Email = PrimaryVerifiedEmail(emails)
	}

	return Normalize(up), nil
}

func (p *Provider) fetchEmails(ctx context.Context, accessToken string) ([]Email, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.emailsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: github: %v", auth.ErrProfileFetch, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: github: %v", auth.ErrProfileFetch, err)
	}
	defer resp.Body.Close()

	// The emails scope can be withheld; a rejected call just means no
	// email is available, which is not an error.
	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	var emails []Email
	if err := json.NewDecoder(resp.Body).Decode(&emails); err != nil {
		return nil, fmt.Errorf("%w: github: %v", auth.ErrProfileFetch, err)
	}
	return emails, nil
}

func (p *Provider) getJSON(ctx context.Context, url, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: github: %v", auth.ErrProfileFetch, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: github: %v", auth.ErrProfileFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: github: HTTP %d", auth.ErrProfileFetch, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: github: %v", auth.ErrProfileFetch, err)
	}
	return nil
}

// PrimaryVerifiedEmail selects the address marked primary && verified.
// Returns "" when no entry qualifies.
func PrimaryVerifiedEmail(emails []Email) string {
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email
		}
	}
	return ""
}

// Normalize maps a GitHub profile onto the canonical identity shape.
// Username falls back name -> login.
func Normalize(up UserProfile) *auth.Profile {
	username := up.Name
	if username == "" {
		username = up.Login
	}

	return &auth.Profile{
		Provider:   providerName,
		ProviderID: strconv.FormatInt(up.ID, 10),
		Username:   username,
		Email:      up.Email,
		AvatarURL:  up.AvatarURL,
	}
}
