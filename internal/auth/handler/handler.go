package handler

import (
	"fmt"
	"net/http"
	"net/url"

	"sso-service/internal/auth"
	"sso-service/internal/auth/provider"
	"sso-service/internal/auth/resolver"
	"sso-service/internal/auth/state"
	"sso-service/internal/middleware"
	"sso-service/internal/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler drives the OAuth login flow end to end: initiation, callback,
// and logout. One call path serves every provider.
type Handler struct {
	providers  *provider.Registry
	correlator *state.Correlator
	resolver   *resolver.Service
	sessions   *session.Manager
	log        *zap.Logger
}

func New(
	registry *provider.Registry,
	correlator *state.Correlator,
	resolver *resolver.Service,
	sessions *session.Manager,
	log *zap.Logger,
) *Handler {
	if log == nil {
		log = zap.L()
	}
	return &Handler{
		providers:  registry,
		correlator: correlator,
		resolver:   resolver,
		sessions:   sessions,
		log:        log,
	}
}

// RegisterRoutes mounts the public authentication routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", h.root)
	r.GET("/login", h.loginPage)
	r.GET("/auth/login/:provider", h.begin)
	r.GET("/auth/callback/:provider", h.callback)
	r.POST("/logout", h.logout)
}

func (h *Handler) root(c *gin.Context) {
	rec, err := h.sessions.Current(c.Request.Context(), c.Request)
	if err == nil && rec != nil {
		c.Redirect(http.StatusFound, "/dashboard")
		return
	}
	c.Redirect(http.StatusFound, "/login")
}

func (h *Handler) loginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{
		"Error": c.Query("error"),
	})
}

// begin starts a login attempt: mint state (and a PKCE verifier where the
// provider uses one), bind both to the client's session identifier, and
// redirect to the provider's authorize URL.
func (h *Handler) begin(c *gin.Context) {
	p, err := h.providers.Get(c.Param("provider"))
	if err != nil {
		h.log.Warn("login initiation for unknown provider",
			zap.String("provider", c.Param("provider")))
		c.Redirect(http.StatusFound, auth.LoginRedirect(err))
		return
	}

	sid, err := h.sessions.EnsureIdentifier(c.Writer, c.Request)
	if err != nil {
		h.log.Error("failed to mint session identifier", zap.Error(err))
		c.Redirect(http.StatusFound, auth.LoginRedirect(err))
		return
	}

	verifier := ""
	if p.UsesPKCE() {
		verifier, err = state.NewVerifier()
		if err != nil {
			h.log.Error("failed to generate pkce verifier", zap.Error(err))
			c.Redirect(http.StatusFound, auth.LoginRedirect(err))
			return
		}
	}

	token, err := h.correlator.Issue(c.Request.Context(), sid, p.Name(), verifier)
	if err != nil {
		h.log.Error("failed to issue state token",
			zap.String("provider", p.Name()), zap.Error(err))
		c.Redirect(http.StatusFound, auth.LoginRedirect(err))
		return
	}

	c.Redirect(http.StatusFound, p.AuthCodeURL(token, verifier))
}

// callback completes a login attempt. Order matters: the error parameter
// short-circuits, state is verified and consumed before any provider
// call, and every failure resolves to a sanitized login redirect.
func (h *Handler) callback(c *gin.Context) {
	ctx := c.Request.Context()
	providerName := c.Param("provider")

	p, err := h.providers.Get(providerName)
	if err != nil {
		h.log.Warn("callback for unknown provider",
			zap.String("provider", providerName))
		c.Redirect(http.StatusFound, auth.LoginRedirect(err))
		return
	}

	if errParam := c.Query("error"); errParam != "" {
		h.log.Error("provider returned callback error",
			zap.String("provider", providerName),
			zap.String("error", errParam),
			zap.String("description", c.Query("error_description")))
		msg := fmt.Sprintf("%s authentication failed. Please try again.", displayName(providerName))
		c.Redirect(http.StatusFound, "/login?error="+url.QueryEscape(msg))
		return
	}

	code := c.Query("code")
	if code == "" {
		h.log.Error("callback missing code and error",
			zap.String("provider", providerName))
		c.Redirect(http.StatusFound, auth.LoginRedirect(auth.ErrMissingCode))
		return
	}

	cookie, err := c.Request.Cookie(session.CookieName)
	if err != nil || cookie.Value == "" {
		// No pending-login context at all: reject, never trust the
		// client-supplied state value.
		h.log.Warn("callback without session identifier",
			zap.String("provider", providerName))
		c.Redirect(http.StatusFound, auth.LoginRedirect(auth.ErrStateMismatch))
		return
	}

	attempt, err := h.correlator.VerifyAndConsume(ctx, cookie.Value, c.Query("state"))
	if err != nil {
		h.log.Warn("state verification failed",
			zap.String("provider", providerName), zap.Error(err))
		c.Redirect(http.StatusFound, auth.LoginRedirect(auth.ErrStateMismatch))
		return
	}
	if attempt.Provider != providerName {
		h.log.Warn("callback provider does not match pending login",
			zap.String("pending", attempt.Provider),
			zap.String("callback", providerName))
		c.Redirect(http.StatusFound, auth.LoginRedirect(auth.ErrStateMismatch))
		return
	}

	accessToken, err := p.ExchangeCode(ctx, code, attempt.CodeVerifier)
	if err != nil {
		h.log.Error("token exchange failed",
			zap.String("provider", providerName), zap.Error(err))
		c.Redirect(http.StatusFound, auth.LoginRedirect(err))
		return
	}

	profile, err := p.FetchProfile(ctx, accessToken)
	if err != nil {
		h.log.Error("profile fetch failed",
			zap.String("provider", providerName), zap.Error(err))
		c.Redirect(http.StatusFound, auth.LoginRedirect(err))
		return
	}

	u, err := h.resolver.ResolveOrCreate(ctx, profile)
	if err != nil {
		h.log.Error("account resolution failed",
			zap.String("provider", providerName), zap.Error(err))
		c.Redirect(http.StatusFound, auth.LoginRedirect(err))
		return
	}

	if _, err := h.sessions.Establish(ctx, c.Writer, u); err != nil {
		h.log.Error("session establishment failed",
			zap.Int64("user_id", u.ID), zap.Error(err))
		c.Redirect(http.StatusFound, auth.LoginRedirect(err))
		return
	}

	h.log.Info("user authenticated",
		zap.Int64("user_id", u.ID),
		zap.String("username", u.Username),
		zap.String("provider", u.Provider))
	c.Redirect(http.StatusFound, "/dashboard")
}

// Dashboard renders the protected area from the session snapshot; no
// storage round trip happens here.
func (h *Handler) Dashboard(c *gin.Context) {
	rec, ok := middleware.SessionFromContext(c.Request.Context())
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	c.HTML(http.StatusOK, "dashboard.html", gin.H{
		"Username": rec.Username,
		"Provider": rec.Provider,
	})
}

// logout is state-mutating (POST, not a link) and always lands on the
// login page, valid prior session or not.
func (h *Handler) logout(c *gin.Context) {
	h.sessions.Terminate(c.Request.Context(), c.Writer, c.Request)
	h.log.Info("user logged out")
	c.Redirect(http.StatusFound, "/login")
}

func displayName(provider string) string {
	switch provider {
	case auth.ProviderMicrosoft:
		return "Microsoft"
	case auth.ProviderGitHub:
		return "GitHub"
	default:
		return "Provider"
	}
}
