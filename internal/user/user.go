// Package user owns the locally stored account record. No other package
// mutates it; resolution and login bookkeeping go through Store.
package user

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound signals no account exists for the lookup key.
	ErrNotFound = errors.New("user: not found")

	// ErrDuplicateIdentity signals an insert hit the (provider,
	// provider_id) uniqueness constraint: the account already exists.
	ErrDuplicateIdentity = errors.New("user: duplicate provider identity")
)

// User is a local account bound to exactly one external identity.
// The (Provider, ProviderID) pair is unique; the same external id under
// a different provider is a distinct account. CreatedAt is immutable,
// LastLogin moves on every successful authentication.
type User struct {
	ID         int64
	Provider   string
	ProviderID string
	Username   string
	Email      string // "" when the provider exposed none
	AvatarURL  string
	CreatedAt  time.Time
	LastLogin  time.Time
}

// NewUser carries the fields for account creation.
type NewUser struct {
	Provider   string
	ProviderID string
	Username   string
	Email      string
	AvatarURL  string
}

// Store is the storage boundary for accounts. The uniqueness of
// (provider, provider_id) must be enforced by the implementation itself,
// not by callers checking before inserting: a losing concurrent insert
// returns ErrDuplicateIdentity. Timestamps are UTC instants.
type Store interface {
	FindByProviderID(ctx context.Context, provider, providerID string) (*User, error)
	Insert(ctx context.Context, n NewUser, at time.Time) (*User, error)
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
}
