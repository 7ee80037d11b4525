package microsoft

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"sso-service/internal/auth"

	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := New("client-id", "client-secret", "http://localhost:3000/auth/callback/microsoft")
	require.NoError(t, err)
	return p
}

func TestNewRequiresAllFields(t *testing.T) {
	_, err := New("", "secret", "http://localhost/cb")
	require.Error(t, err)

	_, err = New("id", "", "http://localhost/cb")
	require.Error(t, err)

	_, err = New("id", "secret", "")
	require.Error(t, err)
}

func TestAuthCodeURLCarriesStateAndChallenge(t *testing.T) {
	p := newTestProvider(t)

	rawURL := p.AuthCodeURL("state-token", "verifier-verifier-verifier-verifier-verifier")
	u, err := url.Parse(rawURL)
	require.NoError(t, err)

	require.Contains(t, u.Host, "login.microsoftonline.com")
	q := u.Query()
	require.Equal(t, "client-id", q.Get("client_id"))
	require.Equal(t, "state-token", q.Get("state"))
	require.Equal(t, "S256", q.Get("code_challenge_method"))
	require.NotEmpty(t, q.Get("code_challenge"))
	require.Contains(t, q.Get("scope"), "openid")
	require.Contains(t, q.Get("scope"), "email")
}

func TestExchangeCodeWrapsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	p := newTestProvider(t)
	p.oauth.Endpoint.AuthURL = srv.URL + "/authorize"
	p.oauth.Endpoint.TokenURL = srv.URL + "/token"

	_, err := p.ExchangeCode(context.Background(), "bad-code", "verifier")
	require.ErrorIs(t, err, auth.ErrTokenExchange)
}

func TestFetchProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "ms-id-1",
			"displayName": "Ada Lovelace",
			"userPrincipalName": "ada@example.com",
			"mail": "ada@example.com"
		}`))
	}))
	defer srv.Close()

	p := newTestProvider(t)
	p.profileURL = srv.URL

	profile, err := p.FetchProfile(context.Background(), "token-123")
	require.NoError(t, err)
	require.Equal(t, auth.ProviderMicrosoft, profile.Provider)
	require.Equal(t, "ms-id-1", profile.ProviderID)
	require.Equal(t, "Ada Lovelace", profile.Username)
	require.Equal(t, "ada@example.com", profile.Email)
}

func TestFetchProfileRejectsNonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := newTestProvider(t)
	p.profileURL = srv.URL

	_, err := p.FetchProfile(context.Background(), "expired-token")
	require.ErrorIs(t, err, auth.ErrProfileFetch)
}

func TestFetchProfileRejectsMissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"displayName": "No ID"}`))
	}))
	defer srv.Close()

	p := newTestProvider(t)
	p.profileURL = srv.URL

	_, err := p.FetchProfile(context.Background(), "token")
	require.ErrorIs(t, err, auth.ErrProfileFetch)
}

func TestNormalizeUsernameFallbacks(t *testing.T) {
	tests := []struct {
		name    string
		profile GraphProfile
		want    string
	}{
		{
			name:    "display name preferred",
			profile: GraphProfile{ID: "1", DisplayName: "Ada", UserPrincipalName: "ada@example.com"},
			want:    "Ada",
		},
		{
			name:    "principal name fallback",
			profile: GraphProfile{ID: "1", UserPrincipalName: "ada@example.com"},
			want:    "ada@example.com",
		},
		{
			name:    "static fallback",
			profile: GraphProfile{ID: "1"},
			want:    "Microsoft User",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.profile)
			require.Equal(t, tt.want, got.Username)
			require.Equal(t, auth.ProviderMicrosoft, got.Provider)
			require.Equal(t, "1", got.ProviderID)
		})
	}
}
