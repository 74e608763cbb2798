// Package middleware carries the request-level HTTP middleware: token
// authentication, role gating, rate limiting, and request logging.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/educore/educore/internal/httputil"
	"github.com/educore/educore/internal/obs"
	"github.com/educore/educore/pkg/auth"
	"github.com/educore/educore/pkg/domain"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity returns the authenticated identity stored by Authenticate,
// or nil when the request is unauthenticated.
func Identity(ctx context.Context) *auth.Identity {
	identity, _ := ctx.Value(identityKey).(*auth.Identity)
	return identity
}

// WithIdentity returns a context carrying the given identity. Exported
// for handler tests.
func WithIdentity(ctx context.Context, identity *auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// Authenticate validates the bearer token and stores the resulting
// identity in the request context. Validation checks the live tenant and
// user state, so a suspension takes effect before the token expires.
func Authenticate(sessions *auth.SessionService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				obs.AuthFailure("missing_token")
				httputil.DomainError(w, domain.ErrUnauthorized)
				return
			}

			identity, err := sessions.Validate(r.Context(), token)
			if err != nil {
				obs.AuthFailure(failureReason(err))
				httputil.DomainError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireRole allows the request through only when the authenticated
// identity holds one of the given roles. Membership is flat: no role
// implies another.
func RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	allowed := domain.NewRoleSet(roles...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := Identity(r.Context())
			if !auth.HasRole(identity, allowed) {
				httputil.DomainError(w, domain.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, domain.ErrTenantInactive):
		return "tenant_inactive"
	case errors.Is(err, domain.ErrUserInactive):
		return "user_inactive"
	default:
		return "invalid_token"
	}
}
