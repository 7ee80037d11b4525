package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Config is the full runtime configuration, loaded from the environment
// with an optional .env file for local development.
type Config struct {
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort string `env:"APP_PORT" envDefault:"3000"`
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:3000"`

	MicrosoftClientID     string `env:"MICROSOFT_CLIENT_ID"`
	MicrosoftClientSecret string `env:"MICROSOFT_CLIENT_SECRET"`

	GitHubClientID     string `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `env:"GITHUB_CLIENT_SECRET"`

	DatabaseDSN string `env:"DATABASE_DSN"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	StateTTL   time.Duration `env:"STATE_TTL" envDefault:"5m"`
}

func Load() (Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	if err := godotenv.Load(); err == nil {
		zap.L().Debug("loaded .env file")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.MicrosoftClientID == "" || cfg.MicrosoftClientSecret == "" {
		return Config{}, fmt.Errorf("MICROSOFT_CLIENT_ID and MICROSOFT_CLIENT_SECRET must be set")
	}
	if cfg.GitHubClientID == "" || cfg.GitHubClientSecret == "" {
		return Config{}, fmt.Errorf("GITHUB_CLIENT_ID and GITHUB_CLIENT_SECRET must be set")
	}

	return cfg, nil
}

// RedirectURL builds the callback URL registered with a provider.
func (c Config) RedirectURL(provider string) string {
	return c.BaseURL + "/auth/callback/" + provider
}

// Production reports whether cookies should carry the Secure attribute.
func (c Config) Production() bool {
	return c.AppEnv == "production"
}
