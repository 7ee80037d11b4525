package app

import (
	"context"
	"html/template"

	"sso-service/internal/auth"
	"sso-service/internal/auth/handler"
	"sso-service/internal/auth/provider"
	"sso-service/internal/auth/provider/github"
	"sso-service/internal/auth/provider/microsoft"
	"sso-service/internal/auth/resolver"
	"sso-service/internal/auth/state"
	"sso-service/internal/config"
	"sso-service/internal/middleware"
	"sso-service/internal/session"
	"sso-service/web"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func setupHTTP(ctx context.Context, cfg config.Config) (*gin.Engine, func() error, error) {

	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	// ----------------------------
	// Dependencies
	// ----------------------------

	correlator := state.NewCorrelator(infra.States, cfg.StateTTL)
	accounts := resolver.New(infra.Users)
	sessions := session.NewManager(infra.Sessions, infra.States, cfg.SessionTTL, cfg.Production())

	microsoftProvider, err := microsoft.New(
		cfg.MicrosoftClientID,
		cfg.MicrosoftClientSecret,
		cfg.RedirectURL(auth.ProviderMicrosoft),
	)
	if err != nil {
		return nil, nil, err
	}

	githubProvider, err := github.New(
		cfg.GitHubClientID,
		cfg.GitHubClientSecret,
		cfg.RedirectURL(auth.ProviderGitHub),
	)
	if err != nil {
		return nil, nil, err
	}

	registry := provider.NewRegistry(
		microsoftProvider,
		githubProvider,
	)

	authHandler := handler.New(
		registry,
		correlator,
		accounts,
		sessions,
		zap.L(),
	)

	authMiddleware := middleware.NewAuthMiddleware(sessions)

	// ----------------------------
	// Router
	// ----------------------------

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(zap.L()))

	tmpl := template.Must(template.ParseFS(web.Templates, "templates/*.html"))
	router.SetHTMLTemplate(tmpl)

	// ----------------------------
	// Public Routes
	// ----------------------------

	authHandler.RegisterRoutes(router)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ----------------------------
	// Protected Web Routes
	// ----------------------------

	protected := router.Group("/")
	protected.Use(middleware.GinRequireAuth(authMiddleware))

	protected.GET("/dashboard", authHandler.Dashboard)

	// ----------------------------
	// Cleanup
	// ----------------------------

	return router, infra.Close, nil
}
