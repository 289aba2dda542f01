package booking

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spacebook/spacebook-api/internal/pkg/response"
)

func passThrough(next http.Handler) http.Handler { return next }

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var resp response.Response
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp
}

func TestHandlerCreateRejectsInvalidWindow(t *testing.T) {
	backend := &stubBackend{}
	h := NewHandler(newTestService(t, backend, nil, nil))
	router := h.Routes(passThrough)

	body := `{"space_id":12,"start":"2025-03-10T10:00","end":"2025-03-10T09:00"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	resp := decodeEnvelope(t, rr)
	if resp.Error == nil || resp.Error.Message != MsgEndAfterStart || resp.Error.Code != "BOOKING_INVALID" {
		t.Fatalf("unexpected error %+v", resp.Error)
	}
	if backend.callCount() != 0 {
		t.Fatalf("expected no backend calls, got %d", backend.callCount())
	}
}

func TestHandlerCreateValidatesForm(t *testing.T) {
	h := NewHandler(newTestService(t, &stubBackend{}, nil, nil))
	router := h.Routes(passThrough)

	body := `{"start":"tomorrow","attendees":0}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	resp := decodeEnvelope(t, rr)
	for _, field := range []string{"space_id", "start", "attendees"} {
		if resp.Error.Details[field] == "" {
			t.Fatalf("expected %s error, got %+v", field, resp.Error.Details)
		}
	}
}

func TestHandlerCreate(t *testing.T) {
	backend := &stubBackend{routes: map[string]reply{
		"POST /bookings": fixed(http.StatusCreated, `{"id":1,"status":"pending"}`),
	}}
	h := NewHandler(newTestService(t, backend, nil, nil))
	router := h.Routes(passThrough)

	body := `{"space_id":"12","title":"Planning","start":"2025-03-10T10:00","end":"2025-03-10T11:00"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if backend.last().Body["title"] != "Planning" {
		t.Fatalf("unexpected payload %v", backend.last().Body)
	}
}

func TestHandlerCancelKnownCancelledConflicts(t *testing.T) {
	backend := &stubBackend{}
	h := NewHandler(newTestService(t, backend, nil, nil))
	router := h.Routes(passThrough)

	req := httptest.NewRequest(http.MethodDelete, "/5?status=cancelled", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	if backend.callCount() != 0 {
		t.Fatalf("expected no backend calls, got %d", backend.callCount())
	}
}

func TestHandlerCancelExhaustedIsNotFound(t *testing.T) {
	h := NewHandler(newTestService(t, &stubBackend{}, nil, nil))
	router := h.Routes(passThrough)

	req := httptest.NewRequest(http.MethodDelete, "/5", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	resp := decodeEnvelope(t, rr)
	if resp.Error.Code != "ENDPOINT_NOT_FOUND" || resp.Error.Attempts == nil {
		t.Fatalf("unexpected error %+v", resp.Error)
	}
}

func TestHandlerMonthlyValidatesMonth(t *testing.T) {
	h := NewHandler(newTestService(t, &stubBackend{}, nil, nil))
	router := h.Routes(passThrough)

	req := httptest.NewRequest(http.MethodGet, "/stats/monthly?year=2025&month=13", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
}

func TestAdminRoutesRequireAdminMiddleware(t *testing.T) {
	h := NewHandler(newTestService(t, &stubBackend{}, nil, nil))
	deny := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			response.Forbidden(w, "Admin access required")
		})
	}
	router := h.AdminRoutes(passThrough, deny)

	req := httptest.NewRequest(http.MethodGet, "/pending", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestParseBound(t *testing.T) {
	loc := time.UTC

	start, ok := ParseBound("2025-03-10", loc, false)
	if !ok || !start.Equal(time.Date(2025, 3, 10, 0, 0, 0, 0, loc)) {
		t.Fatalf("unexpected start %v", start)
	}
	end, ok := ParseBound("2025-03-10", loc, true)
	if !ok || !end.Equal(time.Date(2025, 3, 10, 23, 59, 59, int(999*time.Millisecond), loc)) {
		t.Fatalf("unexpected end %v", end)
	}
	ts, ok := ParseBound("2025-03-10T10:00:00+02:00", loc, false)
	if !ok || !ts.Equal(time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected timestamp %v", ts)
	}
	if _, ok := ParseBound("March", loc, false); ok {
		t.Fatalf("expected failure")
	}
}
