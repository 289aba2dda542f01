package resolution

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/spacebook/spacebook-api/internal/pkg/errorhandler"
	"github.com/spacebook/spacebook-api/internal/pkg/response"
)

// Handler serves the resolution audit trail.
type Handler struct {
	service *Service
}

// NewHandler creates a resolution handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// List handles GET /admin/resolutions?operation=&limit=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			response.BadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := h.service.Recent(r.Context(), q.Get("operation"), limit)
	if err != nil {
		errorhandler.HandleServiceError(r.Context(), w, err)
		return
	}

	response.WithMeta(w, entries, response.Meta{Total: len(entries)})
}

// Routes returns the admin audit router.
func (h *Handler) Routes(authMiddleware, adminMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware, adminMiddleware)

	r.Get("/", h.List)

	return r
}
