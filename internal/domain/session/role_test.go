package session

import (
	"encoding/json"
	"testing"
)

func TestNormalizeRole(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Role
	}{
		{"is_admin flag", `{"is_admin":true}`, RoleAdmin},
		{"admin flag", `{"admin":true}`, RoleAdmin},
		{"false flag", `{"is_admin":false,"role":"employee"}`, RoleEmployee},
		{"role string", `{"role":"ADMIN"}`, RoleAdmin},
		{"enum style role", `{"role":"Role.admin"}`, RoleAdmin},
		{"nested user role", `{"user":{"role":"admin"}}`, RoleAdmin},
		{"role object name", `{"role":{"name":"Admin"}}`, RoleAdmin},
		{"role object value", `{"role":{"value":"admin"}}`, RoleAdmin},
		{"role object type", `{"role":{"type":"admin"}}`, RoleAdmin},
		{"roles list", `{"roles":["employee","admin"]}`, RoleAdmin},
		{"permission", `{"permissions":["approve_bookings"]}`, RoleAdmin},
		{"other permission", `{"permissions":["book"]}`, RoleEmployee},
		{"employee", `{"role":"employee"}`, RoleEmployee},
		{"empty", `{}`, RoleEmployee},
		{"not an object", `[1,2]`, RoleEmployee},
		{"garbage", `nope`, RoleEmployee},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeRole([]byte(tt.raw)); got != tt.want {
				t.Fatalf("NormalizeRole(%s) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestUserUnmarshal(t *testing.T) {
	var u User
	if err := json.Unmarshal([]byte(`{"id":7,"name":"Ada","email":"ada@example.com","roles":["admin"]}`), &u); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if u.ID != "7" || u.FullName != "Ada" || u.Email != "ada@example.com" || !u.IsAdmin() {
		t.Fatalf("unexpected user %+v", u)
	}
}

func TestUserUnmarshalWrapped(t *testing.T) {
	var u User
	raw := `{"user":{"id":"u-1","full_name":"Grace","email":"g@example.com","role":"employee","avatar_url":"http://x/a.jpg"}}`
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if u.ID != "u-1" || u.FullName != "Grace" || u.AvatarURL != "http://x/a.jpg" || u.IsAdmin() {
		t.Fatalf("unexpected user %+v", u)
	}
}

func TestUserRoundTripKeepsRole(t *testing.T) {
	in := User{ID: "1", Email: "a@example.com", Role: RoleAdmin}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out User
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out != in {
		t.Fatalf("expected %+v, got %+v", in, out)
	}
}
