package middleware

import (
	"context"
	"net/http"

	"sso-service/internal/session"
)

// unexported, collision-proof context key
type sessionContextKeyType struct{}

var sessionKey = sessionContextKeyType{}

// SessionFromContext extracts the authenticated session record.
func SessionFromContext(ctx context.Context) (*session.Record, bool) {
	rec, ok := ctx.Value(sessionKey).(*session.Record)
	return rec, ok
}

// AuthMiddleware gates protected resources on session presence. Auth
// decisions are session-based and provider-agnostic.
type AuthMiddleware struct {
	Sessions *session.Manager
}

func NewAuthMiddleware(sessions *session.Manager) *AuthMiddleware {
	return &AuthMiddleware{Sessions: sessions}
}

// RequireAuth rejects requests without a valid session before the
// protected handler runs. Browsers get a login redirect, never an error
// page; an absent record is the sole "not authenticated" signal.
func (a *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec, err := a.Sessions.Current(r.Context(), r)
		if err != nil || rec == nil {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey, rec)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
