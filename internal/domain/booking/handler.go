package booking

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/spacebook/spacebook-api/internal/pkg/errorhandler"
	"github.com/spacebook/spacebook-api/internal/pkg/response"
	"github.com/spacebook/spacebook-api/internal/pkg/validator"
)

// Handler handles booking HTTP requests.
type Handler struct {
	service *Service
}

// NewHandler creates a new booking handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Create handles POST /bookings
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	if errs := validator.Validate(&req); errs != nil {
		errorhandler.LogValidationError(r.Context(), errs)
		response.ValidationError(w, errs)
		return
	}

	created, err := h.service.Create(r.Context(), req)
	if err != nil {
		errorhandler.HandleServiceError(r.Context(), w, err)
		return
	}

	response.Created(w, created)
}

// Mine handles GET /bookings/mine?include_cancelled=true
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	includeCancelled, _ := strconv.ParseBool(r.URL.Query().Get("include_cancelled"))

	list, err := h.service.Mine(r.Context(), includeCancelled)
	if err != nil {
		errorhandler.HandleServiceError(r.Context(), w, err)
		return
	}

	response.WithMeta(w, list.Bookings, response.Meta{Total: len(list.Bookings), Endpoint: list.Endpoint})
}

// Cancel handles DELETE /bookings/{id}?status=
// status is the status the client last saw, if any.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		response.BadRequest(w, "Invalid booking id")
		return
	}

	res, err := h.service.Cancel(r.Context(), id, ParseStatus(r.URL.Query().Get("status")))
	if err != nil {
		errorhandler.HandleServiceError(r.Context(), w, err)
		return
	}

	response.OK(w, res)
}

// Day handles GET /bookings/day?date=YYYY-MM-DD
func (h *Handler) Day(w http.ResponseWriter, r *http.Request) {
	req := DayRequest{Date: r.URL.Query().Get("date")}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	list, err := h.service.On(r.Context(), req.Date)
	if err != nil {
		errorhandler.HandleServiceError(r.Context(), w, err)
		return
	}

	response.WithMeta(w, list.Bookings, response.Meta{Total: len(list.Bookings), Endpoint: list.Endpoint})
}

// Range handles GET /bookings/range?start=&end=
func (h *Handler) Range(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := RangeRequest{Start: q.Get("start"), End: q.Get("end")}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	loc := h.service.Location()
	start, ok := ParseBound(req.Start, loc, false)
	if !ok {
		response.ValidationError(w, map[string]string{"start": "Invalid start. Expected RFC 3339 or YYYY-MM-DD"})
		return
	}
	end, ok := ParseBound(req.End, loc, true)
	if !ok {
		response.ValidationError(w, map[string]string{"end": "Invalid end. Expected RFC 3339 or YYYY-MM-DD"})
		return
	}
	if end.Before(start) {
		response.ValidationError(w, map[string]string{"end": MsgEndAfterStart})
		return
	}

	list, err := h.service.InRange(r.Context(), start, end)
	if err != nil {
		errorhandler.HandleServiceError(r.Context(), w, err)
		return
	}

	response.WithMeta(w, list.Bookings, response.Meta{Total: len(list.Bookings), Endpoint: list.Endpoint})
}

// Monthly handles GET /bookings/stats/monthly?year=2025&month=3
func (h *Handler) Monthly(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, _ := strconv.Atoi(q.Get("year"))
	month, _ := strconv.Atoi(q.Get("month"))

	req := MonthRequest{Year: year, Month: month}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	count, err := h.service.CountForMonth(r.Context(), req.Year, req.Month)
	if err != nil {
		errorhandler.HandleServiceError(r.Context(), w, err)
		return
	}

	response.OK(w, count)
}

// Pending handles GET /admin/bookings/pending
func (h *Handler) Pending(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Pending(r.Context())
	if err != nil {
		errorhandler.HandleServiceError(r.Context(), w, err)
		return
	}

	response.WithMeta(w, list.Bookings, response.Meta{Total: len(list.Bookings), Endpoint: list.Endpoint})
}

// Approve handles POST /admin/bookings/{id}/approve
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Approve)
}

// Reject handles POST /admin/bookings/{id}/reject
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Reject)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, id string, known Status) (*ActionResponse, error)) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		response.BadRequest(w, "Invalid booking id")
		return
	}

	res, err := action(r.Context(), id, ParseStatus(r.URL.Query().Get("status")))
	if err != nil {
		errorhandler.HandleServiceError(r.Context(), w, err)
		return
	}

	response.OK(w, res)
}

// ParseBound reads an RFC 3339 timestamp, a local date-time or a date.
// A date is the start of that day, or its last millisecond when endOfDay is set.
func ParseBound(value string, loc *time.Location, endOfDay bool) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, true
	}
	if t, ok := validator.ParseLocalDateTime(value, loc); ok {
		return t, true
	}
	d, err := time.ParseInLocation(dateLayout, value, loc)
	if err != nil {
		return time.Time{}, false
	}
	if endOfDay {
		return d.AddDate(0, 0, 1).Add(-time.Millisecond), true
	}
	return d, true
}
