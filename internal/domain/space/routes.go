package space

import (
	"github.com/go-chi/chi/v5"
)

// Routes returns space router. All routes are public; a session, when
// present, only adds the bearer token to backend calls.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Get("/resolve", h.Resolve)
	r.Get("/{id}/availability", h.Availability)

	return r
}
