package session

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/spacebook/spacebook-api/internal/pkg/errorhandler"
	"github.com/spacebook/spacebook-api/internal/pkg/officeapi"
	"github.com/spacebook/spacebook-api/internal/pkg/response"
	"github.com/spacebook/spacebook-api/internal/pkg/storage"
	"github.com/spacebook/spacebook-api/internal/pkg/validator"
)

// Handler handles session HTTP requests.
type Handler struct {
	service      *Service
	cookieName   string
	secureCookie bool
}

// NewHandler creates a session handler. The session id is sent in
// cookieName; secure marks the cookie HTTPS-only.
func NewHandler(service *Service, cookieName string, secure bool) *Handler {
	return &Handler{service: service, cookieName: cookieName, secureCookie: secure}
}

// Login handles POST /auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		errorhandler.LogValidationError(r.Context(), errs)
		response.ValidationError(w, errs)
		return
	}

	sess, err := h.service.Login(r.Context(), &req)
	if err != nil {
		errorhandler.HandleServiceError(r.Context(), w, err)
		return
	}

	h.setCookie(w, sess.ID, sess.ExpiresAt)
	response.OK(w, LoginResponse{
		SessionID: sess.ID,
		ExpiresAt: sess.ExpiresAt,
		User:      sess.User,
	})
}

// Register handles POST /auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		errorhandler.LogValidationError(r.Context(), errs)
		response.ValidationError(w, errs)
		return
	}

	user, err := h.service.Register(r.Context(), &req)
	if err != nil {
		errorhandler.HandleServiceError(r.Context(), w, err)
		return
	}

	response.Created(w, user)
}

// Logout handles POST /auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := FromContext(r.Context()); ok {
		if err := h.service.Logout(r.Context(), sess.ID); err != nil {
			errorhandler.HandleServiceError(r.Context(), w, err)
			return
		}
	}
	h.clearCookie(w)
	response.NoContent(w)
}

// Me handles GET /auth/me. The token is re-verified with the backend; a
// rejected token closes the session.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sess, ok := FromContext(ctx)
	if !ok {
		user, err := h.service.Verify(ctx, TokenFromContext(ctx))
		if err != nil {
			errorhandler.HandleServiceError(ctx, w, err)
			return
		}
		response.OK(w, user)
		return
	}

	refreshed, err := h.service.Refresh(ctx, sess)
	if err != nil {
		if officeapi.IsAuthError(err) {
			h.clearCookie(w)
		}
		errorhandler.HandleServiceError(ctx, w, err)
		return
	}
	response.OK(w, refreshed.User)
}

// UpdateProfile handles PATCH /users/me
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		errorhandler.LogValidationError(ctx, errs)
		response.ValidationError(w, errs)
		return
	}

	current, err := h.service.CurrentUser(ctx)
	if err != nil {
		errorhandler.HandleServiceError(ctx, w, err)
		return
	}

	user, err := h.service.UpdateProfile(ctx, *current, req)
	if err != nil {
		errorhandler.HandleServiceError(ctx, w, err)
		return
	}
	h.remember(r, *user)

	response.OK(w, user)
}

// UploadAvatar handles POST /users/me/avatar (multipart field "file")
func (h *Handler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxAvatarSize+1<<20)
	file, _, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "file is required")
		return
	}
	defer file.Close()

	current, err := h.service.CurrentUser(ctx)
	if err != nil {
		errorhandler.HandleServiceError(ctx, w, err)
		return
	}

	user, err := h.service.UploadAvatar(ctx, *current, file)
	if err != nil {
		errorhandler.HandleServiceError(ctx, w, err)
		return
	}
	h.remember(r, *user)

	response.OK(w, user)
}

// remember keeps the session copy of the user in step with the backend.
func (h *Handler) remember(r *http.Request, user User) {
	sess, ok := FromContext(r.Context())
	if !ok {
		return
	}
	if err := h.service.SaveUser(r.Context(), sess, user); err != nil {
		errorhandler.LogDatabaseError(r.Context(), "session_save_user", err)
	}
}

func (h *Handler) setCookie(w http.ResponseWriter, id string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    id,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
