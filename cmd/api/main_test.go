package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/spacebook/spacebook-api/internal/config"
	"github.com/spacebook/spacebook-api/internal/domain/booking"
	"github.com/spacebook/spacebook-api/internal/domain/resolution"
	"github.com/spacebook/spacebook-api/internal/domain/session"
	"github.com/spacebook/spacebook-api/internal/domain/space"
	"github.com/spacebook/spacebook-api/internal/pkg/officeapi"
)

func testRouter(t *testing.T) (chi.Router, session.Store) {
	t.Helper()
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(backend.Close)

	cfg := &config.Config{
		SessionCookie:      "sb_session",
		SessionTTL:         time.Hour,
		LoginRatePerMinute: 10,
		AllowedOrigins:     []string{"http://localhost:5173"},
	}

	client := officeapi.NewClient(officeapi.Config{BaseURL: backend.URL, Timeout: time.Second}, officeapi.TokenFunc(session.TokenFromContext))
	store := session.NewMemoryStore()
	sessions := session.NewService(client, store, cfg.SessionTTL, nil, nil)
	spaces := space.NewService(client, nil, 0, true)
	bookings := booking.NewService(client, spaces, viewerSource(sessions), time.UTC)

	router := newRouter(cfg, routerDeps{
		sessionStore: store,
		sessions:     session.NewHandler(sessions, cfg.SessionCookie, false),
		users:        sessions,
		spaces:       space.NewHandler(spaces),
		bookings:     booking.NewHandler(bookings),
		resolutions:  resolution.NewHandler(resolution.NewService(nil)),
	})
	return router, store
}

func TestHealth(t *testing.T) {
	router, _ := testRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected health response %d %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}
}

func TestRoutesRegistered(t *testing.T) {
	router, _ := testRouter(t)

	want := []string{
		"POST /api/v1/auth/login",
		"POST /api/v1/auth/register",
		"POST /api/v1/auth/logout",
		"GET /api/v1/auth/me",
		"PATCH /api/v1/users/me",
		"POST /api/v1/users/me/avatar",
		"GET /api/v1/spaces",
		"GET /api/v1/spaces/resolve",
		"GET /api/v1/spaces/{id}/availability",
		"POST /api/v1/bookings",
		"GET /api/v1/bookings/mine",
		"DELETE /api/v1/bookings/{id}",
		"GET /api/v1/bookings/day",
		"GET /api/v1/bookings/range",
		"GET /api/v1/bookings/stats/monthly",
		"GET /api/v1/admin/bookings/pending",
		"POST /api/v1/admin/bookings/{id}/approve",
		"POST /api/v1/admin/bookings/{id}/reject",
		"GET /api/v1/admin/resolutions",
	}

	seen := map[string]bool{}
	walk := func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		route = strings.ReplaceAll(route, "/*/", "/")
		seen[method+" "+strings.TrimSuffix(route, "/")] = true
		return nil
	}
	if err := chi.Walk(router, walk); err != nil {
		t.Fatalf("walk: %v", err)
	}

	for _, route := range want {
		if !seen[route] {
			t.Fatalf("route %s not registered", route)
		}
	}
}

func TestBookingsRequireAuth(t *testing.T) {
	router, _ := testRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/bookings/mine", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestAdminRoutesRejectEmployees(t *testing.T) {
	router, store := testRouter(t)

	sess := &session.Session{ID: "s1", Token: "tok", User: session.User{ID: "1", Role: session.RoleEmployee}}
	if err := store.Save(context.Background(), sess, time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/bookings/pending", nil)
	req.AddCookie(&http.Cookie{Name: "sb_session", Value: "s1"})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestAdminResolutionsDisabledWithoutDatabase(t *testing.T) {
	router, store := testRouter(t)

	sess := &session.Session{ID: "s1", Token: "tok", User: session.User{ID: "1", Role: session.RoleAdmin}}
	_ = store.Save(context.Background(), sess, time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/resolutions", nil)
	req.Header.Set("X-Session-ID", "s1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}
