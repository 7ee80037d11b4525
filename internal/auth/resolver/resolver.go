// Package resolver maps external identities to local accounts. It is the
// ONLY place where identity-to-user mapping logic lives.
package resolver

import (
	"context"
	"errors"
	"time"

	"sso-service/internal/auth"
	"sso-service/internal/user"
)

// Service resolves a canonical profile to a local account, creating one
// on first login. Exactly-once creation under concurrent duplicate
// callbacks rests on the store's uniqueness constraint, not on locks
// here: the service itself is stateless.
type Service struct {
	store user.Store
	now   func() time.Time
}

// New builds a resolver over the given account store.
func New(store user.Store) *Service {
	return &Service{store: store, now: time.Now}
}

// ResolveOrCreate looks up the account for (provider, provider_id),
// creating it when absent. Existing accounts get their last_login
// bumped; profile fields are not rewritten on later logins. An insert
// losing a concurrent race is recovered by re-reading the winner's row,
// never surfaced as an error.
func (s *Service) ResolveOrCreate(ctx context.Context, p *auth.Profile) (*user.User, error) {
	if p == nil || p.Provider == "" || p.ProviderID == "" {
		return nil, errors.New("resolver: incomplete profile")
	}
	now := s.now().UTC()

	u, err := s.store.FindByProviderID(ctx, p.Provider, p.ProviderID)
	switch {
	case err == nil:
		return s.touch(ctx, u, now)
	case !errors.Is(err, user.ErrNotFound):
		return nil, err
	}

	created, err := s.store.Insert(ctx, user.NewUser{
		Provider:   p.Provider,
		ProviderID: p.ProviderID,
		Username:   p.Username,
		Email:      p.Email,
		AvatarURL:  p.AvatarURL,
	}, now)
	if err == nil {
		return created, nil
	}
	if !errors.Is(err, user.ErrDuplicateIdentity) {
		return nil, err
	}

	// Lost the insert race: the account exists now, treat it as a login.
	u, err = s.store.FindByProviderID(ctx, p.Provider, p.ProviderID)
	if err != nil {
		return nil, err
	}
	return s.touch(ctx, u, now)
}

func (s *Service) touch(ctx context.Context, u *user.User, at time.Time) (*user.User, error) {
	if err := s.store.UpdateLastLogin(ctx, u.ID, at); err != nil {
		return nil, err
	}
	u.LastLogin = at
	return u, nil
}
