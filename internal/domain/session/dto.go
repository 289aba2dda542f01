package session

import "time"

// LoginRequest is the sign-in form.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=128"`
}

// RegisterRequest is the sign-up form. Role defaults to employee.
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	FullName  string `json:"full_name" validate:"required,max=200"`
	Password  string `json:"password" validate:"required,max=128"`
	Role      string `json:"role" validate:"omitempty,role"`
	AvatarURL string `json:"avatar_url" validate:"omitempty,url"`
}

// ProfileUpdate is a partial profile change. Nil fields are left alone.
type ProfileUpdate struct {
	FullName  *string `json:"full_name,omitempty" validate:"omitempty,min=1,max=200"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email"`
	Password  *string `json:"password,omitempty" validate:"omitempty,max=128"`
	AvatarURL *string `json:"avatar_url,omitempty" validate:"omitempty,url"`
}

// Empty reports an update without any field.
func (u ProfileUpdate) Empty() bool {
	return u.FullName == nil && u.Email == nil && u.Password == nil && u.AvatarURL == nil
}

// Apply copies the changed fields onto user.
func (u ProfileUpdate) Apply(user User) User {
	if u.FullName != nil {
		user.FullName = *u.FullName
	}
	if u.Email != nil {
		user.Email = *u.Email
	}
	if u.AvatarURL != nil {
		user.AvatarURL = *u.AvatarURL
	}
	return user
}

// LoginResponse is returned after a successful sign-in.
type LoginResponse struct {
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}
