package session

import "net/http"

// Error is a session failure with its own HTTP status.
type Error struct {
	status  int
	code    string
	message string
}

func (e *Error) Error() string     { return e.message }
func (e *Error) HTTPStatus() int   { return e.status }
func (e *Error) ErrorCode() string { return e.code }

var (
	ErrNotAuthenticated = &Error{http.StatusUnauthorized, "UNAUTHORIZED", "Not signed in"}
	ErrTokenExpired     = &Error{http.StatusUnauthorized, "TOKEN_EXPIRED", "Access token has expired"}
	ErrNoAccessToken    = &Error{http.StatusBadGateway, "BACKEND_ERROR", "Login response did not include an access token"}
	ErrPasswordTooShort = &Error{http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Password must be at least 8 characters."}
	ErrNothingToUpdate  = &Error{http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Nothing to update"}
	ErrAvatarsDisabled  = &Error{http.StatusServiceUnavailable, "AVATARS_DISABLED", "Avatar uploads are not configured"}
	ErrInvalidAvatar    = &Error{http.StatusUnprocessableEntity, "INVALID_AVATAR", "Avatar must be a JPEG, PNG or GIF image"}
	ErrAvatarTooLarge   = &Error{http.StatusRequestEntityTooLarge, "AVATAR_TOO_LARGE", "Avatar must be 5 MB or smaller"}
)
