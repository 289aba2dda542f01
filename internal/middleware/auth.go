package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/spacebook/spacebook-api/internal/domain/session"
	"github.com/spacebook/spacebook-api/internal/pkg/errorhandler"
	"github.com/spacebook/spacebook-api/internal/pkg/logger"
	"github.com/spacebook/spacebook-api/internal/pkg/response"
)

// SessionHeader carries a session id for clients that do not keep cookies.
const SessionHeader = "X-Session-ID"

// Session attaches the caller's gateway session to the request context.
// Without a session, a bearer token in the Authorization header is passed
// through to the backend as is. Anonymous requests continue unchanged.
func Session(store session.Store, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if id := sessionID(r, cookieName); id != "" {
				sess, err := store.Get(ctx, id)
				switch {
				case err == nil:
					next.ServeHTTP(w, r.WithContext(session.WithSession(ctx, sess)))
					return
				case !errors.Is(err, session.ErrSessionNotFound):
					logger.LogError(ctx, err, "session lookup failed")
				}
			}

			if token := bearerToken(r); token != "" {
				ctx = session.WithToken(ctx, token)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects requests without a session or bearer token.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if session.TokenFromContext(r.Context()) == "" {
			response.Unauthorized(w, "Not signed in")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UserLoader resolves the user behind the current request.
type UserLoader interface {
	CurrentUser(ctx context.Context) (*session.User, error)
}

// RequireAdmin returns middleware that requires the admin role.
func RequireAdmin(users UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := users.CurrentUser(r.Context())
			if err != nil {
				errorhandler.HandleServiceError(r.Context(), w, err)
				return
			}
			if !user.IsAdmin() {
				response.Forbidden(w, "Admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func sessionID(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return strings.TrimSpace(r.Header.Get(SessionHeader))
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
