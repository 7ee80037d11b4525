package app

import (
	"context"
	"database/sql"

	"sso-service/internal/auth/state"
	"sso-service/internal/config"
	"sso-service/internal/db"
	"sso-service/internal/redis"
	"sso-service/internal/session"
	"sso-service/internal/user"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Infra holds the backing stores. Postgres and Redis are used when
// configured; otherwise in-process stores keep local development free of
// external services. In-process stores lose everything on restart.
type Infra struct {
	DB    *sql.DB
	Redis *redis.Client

	Users    user.Store
	Sessions session.Store
	States   state.Store
}

func setupInfra(ctx context.Context, cfg config.Config) (*Infra, error) {
	infra := &Infra{}

	if cfg.DatabaseDSN != "" {
		sqlDB, err := sql.Open("postgres", cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx, sqlDB); err != nil {
			return nil, err
		}
		infra.DB = sqlDB
		infra.Users = user.NewPostgresStore(sqlDB)
		zap.L().Info("database ready")
	} else {
		infra.Users = user.NewMemoryStore()
		zap.L().Warn("DATABASE_DSN not set, using in-memory user store")
	}

	if cfg.RedisAddr != "" {
		redisClient, err := redis.New(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, err
		}
		infra.Redis = redisClient
		infra.Sessions = session.NewRedisStore(redisClient.Client)
		infra.States = state.NewRedisStore(redisClient.Client)
		zap.L().Info("redis ready")
	} else {
		infra.Sessions = session.NewMemoryStore()
		infra.States = state.NewMemoryStore()
		zap.L().Warn("REDIS_ADDR not set, using in-memory session and state stores")
	}

	return infra, nil
}

func (i *Infra) Close() error {
	var firstErr error
	if i.Redis != nil {
		if err := i.Redis.Close(); err != nil {
			firstErr = err
		}
	}
	if i.DB != nil {
		if err := i.DB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
