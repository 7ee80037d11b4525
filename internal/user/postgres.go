package user

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
)

// PostgresStore persists accounts in Postgres. The users table carries a
// UNIQUE (provider, provider_id) constraint, making the database the
// serialization point for concurrent account creation.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const userColumns = `id, provider, provider_id, username, email, avatar_url, created_at, last_login`

func (s *PostgresStore) FindByProviderID(ctx context.Context, provider, providerID string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE provider = $1 AND provider_id = $2
	`, provider, providerID)

	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *PostgresStore) Insert(ctx context.Context, n NewUser, at time.Time) (*User, error) {
	at = at.UTC()

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO users (provider, provider_id, username, email, avatar_url, created_at, last_login)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING `+userColumns+`
	`,
		n.Provider,
		n.ProviderID,
		n.Username,
		nullable(n.Email),
		nullable(n.AvatarURL),
		at,
	)

	u, err := scanUser(row)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrDuplicateIdentity
		}
		return nil, err
	}
	return u, nil
}

func (s *PostgresStore) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET last_login = $1 WHERE id = $2
	`, at.UTC(), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		u         User
		email     sql.NullString
		avatarURL sql.NullString
	)
	err := row.Scan(
		&u.ID,
		&u.Provider,
		&u.ProviderID,
		&u.Username,
		&email,
		&avatarURL,
		&u.CreatedAt,
		&u.LastLogin,
	)
	if err != nil {
		return nil, err
	}
	u.Email = email.String
	u.AvatarURL = avatarURL.String
	u.CreatedAt = u.CreatedAt.UTC()
	u.LastLogin = u.LastLogin.UTC()
	return &u, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
