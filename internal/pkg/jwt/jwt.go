package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Claims are the fields read from a backend access token. The gateway does
// not hold the backend signing key, so tokens are decoded without
// verification and only used for session bookkeeping.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// ParseUnverified decodes a backend access token without checking its signature.
func ParseUnverified(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ExpiresAt returns the token expiry. ok is false when the token is not a
// JWT or carries no exp claim.
func ExpiresAt(tokenString string) (time.Time, bool) {
	claims, err := ParseUnverified(tokenString)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// TTL returns how long the token stays valid after now, bounded by fallback.
// Tokens without expiry get fallback; expired tokens return ErrExpiredToken.
func TTL(tokenString string, now time.Time, fallback time.Duration) (time.Duration, error) {
	exp, ok := ExpiresAt(tokenString)
	if !ok {
		return fallback, nil
	}
	ttl := exp.Sub(now)
	if ttl <= 0 {
		return 0, ErrExpiredToken
	}
	if fallback > 0 && ttl > fallback {
		return fallback, nil
	}
	return ttl, nil
}
