package db

import (
	"context"
	"database/sql"
)

const usersMigration = `
CREATE TABLE IF NOT EXISTS users (
    id BIGSERIAL PRIMARY KEY,
    provider TEXT NOT NULL,
    provider_id TEXT NOT NULL,
    username TEXT NOT NULL,
    email TEXT,
    avatar_url TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    last_login TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT users_provider_identity_unique
        UNIQUE (provider, provider_id)
);
`

// Migrate creates the users table. The unique constraint on
// (provider, provider_id) is the serialization point for concurrent
// first logins.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, usersMigration)
	return err
}
