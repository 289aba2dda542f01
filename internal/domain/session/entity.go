package session

import (
	"encoding/json"
	"time"

	"github.com/spacebook/spacebook-api/internal/pkg/officeapi"
)

// User is the signed-in user with a normalized role.
type User struct {
	ID        string `json:"id"`
	FullName  string `json:"full_name"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// IsAdmin reports the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UnmarshalJSON reads a backend user record. The record may be wrapped
// in {"user": {...}}; the role is normalized once here.
func (u *User) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if _, hasID := fields["id"]; !hasID {
		var inner map[string]json.RawMessage
		if raw := fields["user"]; json.Unmarshal(raw, &inner) == nil && inner != nil {
			fields, data = inner, raw
		}
	}

	*u = User{
		ID:        scalar(fields, "id", "user_id"),
		FullName:  scalar(fields, "full_name", "name", "username"),
		Email:     scalar(fields, "email"),
		AvatarURL: scalar(fields, "avatar_url", "avatarUrl"),
		Role:      NormalizeRole(data),
	}
	return nil
}

func scalar(fields map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		if v, ok := officeapi.Scalar(fields[k]); ok && v != "" {
			return v
		}
	}
	return ""
}

// Session is a signed-in browser session held by the gateway.
type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	User      User      `json:"user"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
