package handler

import (
	"context"
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"sso-service/internal/auth"
	"sso-service/internal/auth/provider"
	"sso-service/internal/auth/resolver"
	"sso-service/internal/auth/state"
	"sso-service/internal/middleware"
	"sso-service/internal/session"
	"sso-service/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeProvider struct {
	name          string
	pkce          bool
	exchangeCalls atomic.Int32
	exchangeErr   error
	profile       *auth.Profile
	lastVerifier  string
}

func (p *fakeProvider) Name() string   { return p.name }
func (p *fakeProvider) UsesPKCE() bool { return p.pkce }

func (p *fakeProvider) AuthCodeURL(state, codeVerifier string) string {
	return "https://provider.example/authorize?state=" + url.QueryEscape(state)
}

func (p *fakeProvider) ExchangeCode(_ context.Context, code, codeVerifier string) (string, error) {
	p.exchangeCalls.Add(1)
	p.lastVerifier = codeVerifier
	if p.exchangeErr != nil {
		return "", p.exchangeErr
	}
	return "access-token", nil
}

func (p *fakeProvider) FetchProfile(_ context.Context, accessToken string) (*auth.Profile, error) {
	return p.profile, nil
}

func githubFake() *fakeProvider {
	return &fakeProvider{
		name: auth.ProviderGitHub,
		profile: &auth.Profile{
			Provider:   auth.ProviderGitHub,
			ProviderID: "42",
			Username:   "octocat",
			Email:      "octo@example.com",
		},
	}
}

const testTemplates = `
{{define "login.html"}}login {{.Error}}{{end}}
{{define "dashboard.html"}}dashboard {{.Username}} {{.Provider}}{{end}}
`

func newTestRouter(t *testing.T, providers ...provider.Provider) (*gin.Engine, *session.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	states := state.NewMemoryStore()
	sessions := session.NewManager(session.NewMemoryStore(), states, time.Hour, false)

	h := New(
		provider.NewRegistry(providers...),
		state.NewCorrelator(states, state.DefaultTTL),
		resolver.New(user.NewMemoryStore()),
		sessions,
		zap.NewNop(),
	)

	router := gin.New()
	router.SetHTMLTemplate(template.Must(template.New("").Parse(testTemplates)))
	h.RegisterRoutes(router)

	protected := router.Group("/")
	protected.Use(middleware.GinRequireAuth(middleware.NewAuthMiddleware(sessions)))
	protected.GET("/dashboard", h.Dashboard)

	return router, sessions
}

func get(router *gin.Engine, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	t.Fatal("no session cookie in response")
	return nil
}

// beginLogin drives the initiation leg and hands back the session cookie
// and the state value the provider would echo on the callback.
func beginLogin(t *testing.T, router *gin.Engine) (*http.Cookie, string) {
	t.Helper()

	w := get(router, "/auth/login/github")
	require.Equal(t, http.StatusFound, w.Code)

	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "provider.example", loc.Host)
	stateToken := loc.Query().Get("state")
	require.NotEmpty(t, stateToken)

	return sessionCookie(t, w), stateToken
}

func TestBeginRedirectsToProvider(t *testing.T) {
	router, _ := newTestRouter(t, githubFake())

	cookie, stateToken := beginLogin(t, router)
	require.NotEmpty(t, cookie.Value)
	require.NotEmpty(t, stateToken)
}

func TestBeginUnknownProvider(t *testing.T) {
	router, _ := newTestRouter(t, githubFake())

	w := get(router, "/auth/login/gitlab")
	require.Equal(t, http.StatusFound, w.Code)
	loc := w.Header().Get("Location")
	require.Contains(t, loc, "/login?error=")
	require.Contains(t, loc, url.QueryEscape("Invalid login provider selected."))
}

func TestFullLoginFlow(t *testing.T) {
	p := githubFake()
	router, _ := newTestRouter(t, p)

	cookie, stateToken := beginLogin(t, router)

	w := get(router, "/auth/callback/github?code=auth-code&state="+url.QueryEscape(stateToken), cookie)
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/dashboard", w.Header().Get("Location"))
	require.Equal(t, int32(1), p.exchangeCalls.Load())

	// The authenticated identifier differs from the pre-login one.
	authed := sessionCookie(t, w)
	require.NotEqual(t, cookie.Value, authed.Value)

	dash := get(router, "/dashboard", authed)
	require.Equal(t, http.StatusOK, dash.Code)
	require.Contains(t, dash.Body.String(), "octocat")
	require.Contains(t, dash.Body.String(), "github")
}

func TestCallbackProviderErrorSkipsExchange(t *testing.T) {
	p := githubFake()
	router, _ := newTestRouter(t, p)

	cookie, _ := beginLogin(t, router)

	w := get(router, "/auth/callback/github?error=access_denied&error_description=denied", cookie)
	require.Equal(t, http.StatusFound, w.Code)
	require.Contains(t, w.Header().Get("Location"),
		url.QueryEscape("GitHub authentication failed. Please try again."))
	require.Equal(t, int32(0), p.exchangeCalls.Load())
}

func TestCallbackMissingCode(t *testing.T) {
	p := githubFake()
	router, _ := newTestRouter(t, p)

	cookie, stateToken := beginLogin(t, router)

	w := get(router, "/auth/callback/github?state="+url.QueryEscape(stateToken), cookie)
	require.Equal(t, http.StatusFound, w.Code)
	require.Contains(t, w.Header().Get("Location"),
		url.QueryEscape("Login was incomplete. Please try again."))
	require.Equal(t, int32(0), p.exchangeCalls.Load())
}

func TestCallbackWithoutSessionCookie(t *testing.T) {
	p := githubFake()
	router, _ := newTestRouter(t, p)

	_, stateToken := beginLogin(t, router)

	w := get(router, "/auth/callback/github?code=auth-code&state="+url.QueryEscape(stateToken))
	require.Equal(t, http.StatusFound, w.Code)
	require.Contains(t, w.Header().Get("Location"),
		url.QueryEscape("Security error during login. Please try again."))
	require.Equal(t, int32(0), p.exchangeCalls.Load())
}

func TestCallbackForgedState(t *testing.T) {
	p := githubFake()
	router, _ := newTestRouter(t, p)

	cookie, _ := beginLogin(t, router)

	w := get(router, "/auth/callback/github?code=auth-code&state=forged", cookie)
	require.Equal(t, http.StatusFound, w.Code)
	require.Contains(t, w.Header().Get("Location"),
		url.QueryEscape("Security error during login. Please try again."))
	require.Equal(t, int32(0), p.exchangeCalls.Load())
}

func TestCallbackReplayRejected(t *testing.T) {
	p := githubFake()
	router, _ := newTestRouter(t, p)

	cookie, stateToken := beginLogin(t, router)

	path := "/auth/callback/github?code=auth-code&state=" + url.QueryEscape(stateToken)
	first := get(router, path, cookie)
	require.Equal(t, "/dashboard", first.Header().Get("Location"))

	second := get(router, path, cookie)
	require.Contains(t, second.Header().Get("Location"),
		url.QueryEscape("Security error during login. Please try again."))
	require.Equal(t, int32(1), p.exchangeCalls.Load())
}

func TestCallbackProviderMismatch(t *testing.T) {
	gh := githubFake()
	ms := &fakeProvider{
		name: auth.ProviderMicrosoft,
		pkce: true,
		profile: &auth.Profile{
			Provider:   auth.ProviderMicrosoft,
			ProviderID: "ms-1",
			Username:   "Ada",
		},
	}
	router, _ := newTestRouter(t, gh, ms)

	// Initiate against GitHub, deliver the callback to Microsoft.
	cookie, stateToken := beginLogin(t, router)

	w := get(router, "/auth/callback/microsoft?code=auth-code&state="+url.QueryEscape(stateToken), cookie)
	require.Contains(t, w.Header().Get("Location"),
		url.QueryEscape("Security error during login. Please try again."))
	require.Equal(t, int32(0), gh.exchangeCalls.Load())
	require.Equal(t, int32(0), ms.exchangeCalls.Load())
}

func TestCallbackExchangeFailure(t *testing.T) {
	p := githubFake()
	p.exchangeErr = auth.ErrTokenExchange
	router, _ := newTestRouter(t, p)

	cookie, stateToken := beginLogin(t, router)

	w := get(router, "/auth/callback/github?code=bad-code&state="+url.QueryEscape(stateToken), cookie)
	require.Contains(t, w.Header().Get("Location"),
		url.QueryEscape("Failed to complete login. Please try again."))
}

func TestPKCEVerifierFlowsToExchange(t *testing.T) {
	p := &fakeProvider{
		name: auth.ProviderMicrosoft,
		pkce: true,
		profile: &auth.Profile{
			Provider:   auth.ProviderMicrosoft,
			ProviderID: "ms-1",
			Username:   "Ada",
		},
	}
	router, _ := newTestRouter(t, p)

	w := get(router, "/auth/login/microsoft")
	require.Equal(t, http.StatusFound, w.Code)
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	stateToken := loc.Query().Get("state")
	cookie := sessionCookie(t, w)

	cb := get(router, "/auth/callback/microsoft?code=auth-code&state="+url.QueryEscape(stateToken), cookie)
	require.Equal(t, "/dashboard", cb.Header().Get("Location"))
	require.Len(t, p.lastVerifier, 43)
}

func TestLogoutEndsSession(t *testing.T) {
	p := githubFake()
	router, _ := newTestRouter(t, p)

	cookie, stateToken := beginLogin(t, router)
	cb := get(router, "/auth/callback/github?code=auth-code&state="+url.QueryEscape(stateToken), cookie)
	authed := sessionCookie(t, cb)

	r := httptest.NewRequest(http.MethodPost, "/logout", nil)
	r.AddCookie(authed)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/login", w.Header().Get("Location"))

	// The old identifier no longer grants access.
	dash := get(router, "/dashboard", authed)
	require.Equal(t, http.StatusFound, dash.Code)
	require.Equal(t, "/login", dash.Header().Get("Location"))
}

func TestDashboardRequiresSession(t *testing.T) {
	router, _ := newTestRouter(t, githubFake())

	w := get(router, "/dashboard")
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/login", w.Header().Get("Location"))
}

func TestRootRedirects(t *testing.T) {
	p := githubFake()
	router, _ := newTestRouter(t, p)

	w := get(router, "/")
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/login", w.Header().Get("Location"))

	cookie, stateToken := beginLogin(t, router)
	cb := get(router, "/auth/callback/github?code=auth-code&state="+url.QueryEscape(stateToken), cookie)
	authed := sessionCookie(t, cb)

	home := get(router, "/", authed)
	require.Equal(t, http.StatusFound, home.Code)
	require.Equal(t, "/dashboard", home.Header().Get("Location"))
}

func TestLoginPageShowsError(t *testing.T) {
	router, _ := newTestRouter(t, githubFake())

	w := get(router, "/login?error="+url.QueryEscape("Authentication failed. Please try again."))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Authentication failed. Please try again.")
}
