package session

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns auth router. loginLimiter throttles sign-in attempts.
func (h *Handler) Routes(authMiddleware, loginLimiter func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	// Public routes
	r.With(loginLimiter).Post("/login", h.Login)
	r.Post("/register", h.Register)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/logout", h.Logout)
		r.Get("/me", h.Me)
	})

	return r
}

// UserRoutes returns the profile router.
func (h *Handler) UserRoutes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Patch("/me", h.UpdateProfile)
	r.Post("/me/avatar", h.UploadAvatar)

	return r
}
