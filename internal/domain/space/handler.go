package space

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/spacebook/spacebook-api/internal/pkg/errorhandler"
	"github.com/spacebook/spacebook-api/internal/pkg/response"
	"github.com/spacebook/spacebook-api/internal/pkg/validator"
)

// Handler handles space HTTP requests.
type Handler struct {
	service *Service
}

// NewHandler creates a new space handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// List handles GET /spaces?type=&activity=&q=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := Filter{
		Type:     q.Get("type"),
		Activity: q.Get("activity"),
		Query:    q.Get("q"),
	}
	if errs := validator.Validate(&f); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	spaces, err := h.service.List(r.Context(), f)
	if err != nil {
		errorhandler.HandleServiceError(r.Context(), w, err)
		return
	}

	response.WithMeta(w, spaces, response.Meta{Total: len(spaces)})
}

// Resolve handles GET /spaces/resolve?key=desk3
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		response.BadRequest(w, "key is required")
		return
	}

	id, err := h.service.ResolveID(r.Context(), key)
	if err != nil {
		errorhandler.HandleServiceError(r.Context(), w, err)
		return
	}

	response.OK(w, ResolveResponse{Key: key, SpaceID: id})
}

// Availability handles GET /spaces/{id}/availability?date=YYYY-MM-DD
func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid space id")
		return
	}

	req := AvailabilityRequest{Date: r.URL.Query().Get("date")}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	doc, err := h.service.Availability(r.Context(), id, req.Date)
	if err != nil {
		errorhandler.HandleServiceError(r.Context(), w, err)
		return
	}

	response.OK(w, doc)
}
