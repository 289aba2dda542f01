package session

import "context"

type contextKey string

const (
	sessionKey contextKey = "session"
	tokenKey   contextKey = "token"
)

// WithSession stores an open session and its token in ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	ctx = context.WithValue(ctx, sessionKey, s)
	return context.WithValue(ctx, tokenKey, s.Token)
}

// WithToken stores a bearer token passed through by the caller.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

// FromContext returns the open session, if any.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey).(*Session)
	return s, ok && s != nil
}

// TokenFromContext returns the backend token for the current request, or "".
func TokenFromContext(ctx context.Context) string {
	if token, ok := ctx.Value(tokenKey).(string); ok {
		return token
	}
	return ""
}

// CurrentUser returns the session user, or loads the profile for a
// passed-through token.
func (s *Service) CurrentUser(ctx context.Context) (*User, error) {
	if sess, ok := FromContext(ctx); ok {
		u := sess.User
		return &u, nil
	}
	token := TokenFromContext(ctx)
	if token == "" {
		return nil, ErrNotAuthenticated
	}
	if u, err := s.Me(ctx); err != nil || u != nil {
		return u, err
	}
	return s.Verify(ctx, token)
}
