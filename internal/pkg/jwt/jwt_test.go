package jwt

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := Claims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func TestParseUnverifiedReadsClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	claims, err := ParseUnverified(signed(t, exp))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "42" || claims.Role != "admin" || !claims.ExpiresAt.Time.Equal(exp) {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestParseUnverifiedRejectsOpaqueToken(t *testing.T) {
	if _, err := ParseUnverified("opaque-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTTL(t *testing.T) {
	now := time.Now()

	ttl, err := TTL(signed(t, now.Add(time.Hour)), now, 12*time.Hour)
	if err != nil || ttl < 59*time.Minute || ttl > time.Hour {
		t.Fatalf("expected about an hour, got %v, %v", ttl, err)
	}

	ttl, err = TTL(signed(t, now.Add(48*time.Hour)), now, 12*time.Hour)
	if err != nil || ttl != 12*time.Hour {
		t.Fatalf("expected fallback bound, got %v, %v", ttl, err)
	}

	ttl, err = TTL("opaque", now, 12*time.Hour)
	if err != nil || ttl != 12*time.Hour {
		t.Fatalf("expected fallback for opaque token, got %v, %v", ttl, err)
	}

	if _, err := TTL(signed(t, now.Add(-time.Minute)), now, time.Hour); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}
