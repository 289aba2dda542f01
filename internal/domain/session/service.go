package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spacebook/spacebook-api/internal/pkg/imaging"
	"github.com/spacebook/spacebook-api/internal/pkg/jwt"
	"github.com/spacebook/spacebook-api/internal/pkg/logger"
	"github.com/spacebook/spacebook-api/internal/pkg/officeapi"
	"github.com/spacebook/spacebook-api/internal/pkg/storage"
)

var profilePaths = []string{"/users/me", "/api/users/me", "/me", "/api/me"}

var profileMethods = []string{http.MethodPatch, http.MethodPut, http.MethodPost}

// Backend is the part of the backend client used for authentication.
type Backend interface {
	Resolve(ctx context.Context, op string, candidates []officeapi.Candidate, accept officeapi.Accept) (*officeapi.Result, error)
	RequestWithToken(ctx context.Context, method, path string, body interface{}, token string) (json.RawMessage, error)
}

// Service signs users in against the backend and keeps gateway sessions.
type Service struct {
	backend Backend
	store   Store
	ttl     time.Duration
	avatars storage.Storage
	images  *imaging.Processor
	now     func() time.Time
}

// NewService creates the session service. store is nil for the CLI,
// avatars is nil when uploads are disabled.
func NewService(backend Backend, store Store, ttl time.Duration, avatars storage.Storage, images *imaging.Processor) *Service {
	if images == nil {
		images = imaging.NewProcessor(imaging.DefaultConfig())
	}
	return &Service{
		backend: backend,
		store:   store,
		ttl:     ttl,
		avatars: avatars,
		images:  images,
		now:     time.Now,
	}
}

// Authenticate exchanges credentials for an access token and the verified user.
func (s *Service) Authenticate(ctx context.Context, email, password string) (string, *User, error) {
	body, err := s.backend.RequestWithToken(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    strings.TrimSpace(email),
		"password": password,
	}, "")
	if err != nil {
		return "", nil, err
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		Token       string `json:"token"`
	}
	if len(body) > 0 {
		_ = json.Unmarshal(body, &payload)
	}
	token := payload.AccessToken
	if token == "" {
		token = payload.Token
	}
	if token == "" {
		return "", nil, ErrNoAccessToken
	}

	user, err := s.Verify(ctx, token)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// Login signs in and opens a gateway session. The session lives as long as
// the token does, capped at the configured TTL.
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*Session, error) {
	token, user, err := s.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	ttl, err := jwt.TTL(token, now, s.ttl)
	if errors.Is(err, jwt.ErrExpiredToken) {
		return nil, ErrTokenExpired
	}
	if err != nil {
		return nil, err
	}

	sess := &Session{
		ID:        uuid.NewString(),
		Token:     token,
		User:      *user,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.store.Save(ctx, sess, ttl); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	logger.LogInfo(ctx, "session opened", "session_id", sess.ID, "user_id", user.ID, "role", string(user.Role))
	return sess, nil
}

// Register creates a backend account. When the backend does not echo the
// user back, the user is built from the form.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*User, error) {
	role := req.Role
	if role == "" {
		role = string(RoleEmployee)
	}

	payload := map[string]string{
		"email":     strings.TrimSpace(req.Email),
		"full_name": strings.TrimSpace(req.FullName),
		"password":  req.Password,
		"role":      role,
	}
	if req.AvatarURL != "" {
		payload["avatar_url"] = req.AvatarURL
	}

	body, err := s.backend.RequestWithToken(ctx, http.MethodPost, "/auth/register", payload, "")
	if err != nil {
		return nil, err
	}

	if user, ok := decodeUser(body); ok {
		return user, nil
	}
	return &User{
		FullName:  payload["full_name"],
		Email:     payload["email"],
		Role:      Role(role),
		AvatarURL: req.AvatarURL,
	}, nil
}

// Verify checks a token with the backend and returns its user.
func (s *Service) Verify(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrNotAuthenticated
	}
	body, err := s.backend.RequestWithToken(ctx, http.MethodGet, "/auth/verify", nil, token)
	if err != nil {
		return nil, err
	}
	if user, ok := decodeUser(body); ok {
		return user, nil
	}
	return &User{Role: NormalizeRole(body)}, nil
}

// Refresh re-verifies a session token. A token the backend no longer accepts
// ends the session.
func (s *Service) Refresh(ctx context.Context, sess *Session) (*Session, error) {
	user, err := s.Verify(ctx, sess.Token)
	if officeapi.IsAuthError(err) {
		if delErr := s.store.Delete(ctx, sess.ID); delErr != nil {
			logger.LogError(ctx, delErr, "failed to delete rejected session", "session_id", sess.ID)
		}
		logger.LogInfo(ctx, "session closed by backend", "session_id", sess.ID)
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	updated := *sess
	updated.User = *user
	if err := s.save(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Logout ends a gateway session.
func (s *Service) Logout(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	logger.LogInfo(ctx, "session closed", "session_id", id)
	return nil
}

// Me returns the current user's profile, or nil when no profile route exists.
func (s *Service) Me(ctx context.Context) (*User, error) {
	candidates := make([]officeapi.Candidate, 0, len(profilePaths))
	for _, p := range profilePaths {
		candidates = append(candidates, officeapi.Get(p))
	}

	res, err := s.backend.Resolve(ctx, "profile", candidates, officeapi.AcceptNonEmpty)
	if errors.Is(err, officeapi.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	user, ok := decodeUser(res.Body)
	if !ok {
		return nil, nil
	}
	return user, nil
}

// UpdateProfile sends a partial profile update. current is used to fill
// in the result when the backend answers without the user record.
func (s *Service) UpdateProfile(ctx context.Context, current User, upd ProfileUpdate) (*User, error) {
	if upd.Empty() {
		return nil, ErrNothingToUpdate
	}
	if upd.Password != nil && len(*upd.Password) < 8 {
		return nil, ErrPasswordTooShort
	}

	candidates := make([]officeapi.Candidate, 0, len(profilePaths)*len(profileMethods))
	for _, p := range profilePaths {
		for _, m := range profileMethods {
			candidates = append(candidates, officeapi.Candidate{Method: m, Path: p, Body: upd})
		}
	}

	res, err := s.backend.Resolve(ctx, "profile update", candidates, officeapi.AcceptSuccess)
	if err != nil {
		return nil, err
	}

	if user, ok := decodeUser(res.Body); ok {
		return user, nil
	}
	merged := upd.Apply(current)
	return &merged, nil
}

// UploadAvatar resizes an uploaded image, stores it and points the
// profile's avatar_url at it.
func (s *Service) UploadAvatar(ctx context.Context, current User, r io.Reader) (*User, error) {
	if s.avatars == nil {
		return nil, ErrAvatarsDisabled
	}
	if current.ID == "" {
		return nil, ErrNotAuthenticated
	}

	data, _, err := storage.ValidateImage(r, storage.MaxAvatarSize)
	switch {
	case errors.Is(err, storage.ErrFileTooLarge):
		return nil, ErrAvatarTooLarge
	case errors.Is(err, storage.ErrInvalidMimeType), errors.Is(err, storage.ErrEmptyFile):
		return nil, ErrInvalidAvatar
	case err != nil:
		return nil, err
	}

	avatar, err := s.images.Avatar(bytes.NewReader(data))
	if err != nil {
		logger.LogWarn(ctx, "avatar decode failed", "user_id", current.ID, "error", err.Error())
		return nil, ErrInvalidAvatar
	}

	key := imaging.AvatarPath(current.ID, uuid.NewString())
	if err := s.avatars.Save(ctx, key, bytes.NewReader(avatar.Data), avatar.ContentType); err != nil {
		return nil, fmt.Errorf("save avatar: %w", err)
	}

	url := s.avatars.GetURL(key)
	user, err := s.UpdateProfile(ctx, current, ProfileUpdate{AvatarURL: &url})
	if err != nil {
		if delErr := s.avatars.Delete(ctx, key); delErr != nil {
			logger.LogError(ctx, delErr, "failed to remove orphaned avatar", "key", key)
		}
		return nil, err
	}

	logger.LogInfo(ctx, "avatar updated", "user_id", current.ID, "key", key, "width", avatar.Width, "height", avatar.Height)
	return user, nil
}

// SaveUser stores a changed user on an open session.
func (s *Service) SaveUser(ctx context.Context, sess *Session, user User) error {
	if sess == nil || s.store == nil {
		return nil
	}
	updated := *sess
	updated.User = user
	return s.save(ctx, &updated)
}

// save keeps the session's original expiry.
func (s *Service) save(ctx context.Context, sess *Session) error {
	ttl := s.ttl
	if !sess.ExpiresAt.IsZero() {
		ttl = sess.ExpiresAt.Sub(s.now())
	}
	if ttl <= 0 {
		return ErrNotAuthenticated
	}
	if err := s.store.Save(ctx, sess, ttl); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// decodeUser reads a user record; records without an id or email are rejected.
func decodeUser(body []byte) (*User, bool) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, false
	}
	var u User
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, false
	}
	if u.ID == "" && u.Email == "" {
		return nil, false
	}
	return &u, true
}
