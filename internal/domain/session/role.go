package session

import (
	"encoding/json"
	"strings"
)

// Role is the canonical user role.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleAdmin    Role = "admin"
)

// NormalizeRole reads a backend user record and returns its role.
//
// A user is an admin when any of these say so: is_admin or admin flags,
// a role string equal to or ending in "admin" ("Role.admin"), user.role,
// role.name / role.value / role.type, a roles list, or an
// approve_bookings permission. Everyone else is an employee.
func NormalizeRole(raw []byte) Role {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return RoleEmployee
	}
	if isAdmin(fields) {
		return RoleAdmin
	}
	return RoleEmployee
}

func isAdmin(fields map[string]json.RawMessage) bool {
	if flag(fields["is_admin"]) || flag(fields["admin"]) {
		return true
	}

	if role, ok := text(fields["role"]); ok && strings.HasSuffix(role, "admin") {
		return true
	}

	var user map[string]json.RawMessage
	if json.Unmarshal(fields["user"], &user) == nil {
		if role, ok := text(user["role"]); ok && role == "admin" {
			return true
		}
	}

	var roleObj map[string]json.RawMessage
	if json.Unmarshal(fields["role"], &roleObj) == nil {
		for _, k := range []string{"name", "value", "type"} {
			if v, ok := text(roleObj[k]); ok && v == "admin" {
				return true
			}
		}
	}

	return contains(fields["roles"], "admin") || contains(fields["permissions"], "approve_bookings")
}

func flag(raw json.RawMessage) bool {
	var b bool
	return json.Unmarshal(raw, &b) == nil && b
}

// text returns a lower-cased JSON string.
func text(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return strings.ToLower(strings.TrimSpace(s)), true
}

func contains(raw json.RawMessage, want string) bool {
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return false
	}
	for _, item := range list {
		if v, ok := text(item); ok && v == want {
			return true
		}
	}
	return false
}
