package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/spacebook/spacebook-api/internal/pkg/response"
)

func passThrough(next http.Handler) http.Handler { return next }

// withSession injects sess the way the session middleware does.
func withSession(sess *Session) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var resp response.Response
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp
}

func findCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestHandlerLoginSetsCookie(t *testing.T) {
	svc, store := newTestService(t, loginBackend("opaque"), nil)
	h := NewHandler(svc, "sb_session", true)
	router := h.Routes(passThrough, passThrough)

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"ada@example.com","password":"secret"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	cookie := findCookie(rr, "sb_session")
	if cookie == nil || cookie.Value == "" || !cookie.HttpOnly || !cookie.Secure {
		t.Fatalf("unexpected cookie %+v", cookie)
	}
	if _, err := store.Get(context.Background(), cookie.Value); err != nil {
		t.Fatalf("cookie must name a stored session: %v", err)
	}
	if strings.Contains(rr.Body.String(), "opaque") {
		t.Fatal("login response must not expose the backend token")
	}
}

func TestHandlerLoginValidates(t *testing.T) {
	svc, _ := newTestService(t, &stubBackend{}, nil)
	router := NewHandler(svc, "sb_session", false).Routes(passThrough, passThrough)

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"not-an-email"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	resp := decodeEnvelope(t, rr)
	if resp.Error.Details["email"] == "" || resp.Error.Details["password"] == "" {
		t.Fatalf("expected email and password errors, got %+v", resp.Error.Details)
	}
}

func TestHandlerLoginMirrorsBackendRejection(t *testing.T) {
	backend := &stubBackend{routes: map[string]reply{
		"POST /auth/login": fixed(http.StatusUnauthorized, `{"detail":"Incorrect email or password"}`),
	}}
	svc, _ := newTestService(t, backend, nil)
	router := NewHandler(svc, "sb_session", false).Routes(passThrough, passThrough)

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"a@example.com","password":"bad"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if resp := decodeEnvelope(t, rr); resp.Error.Message != "Incorrect email or password" {
		t.Fatalf("unexpected message %q", resp.Error.Message)
	}
}

func TestHandlerLogoutClearsSession(t *testing.T) {
	svc, store := newTestService(t, &stubBackend{}, nil)
	sess := &Session{ID: "s1", Token: "tok", ExpiresAt: testNow.Add(time.Hour)}
	_ = store.Save(context.Background(), sess, time.Hour)

	router := NewHandler(svc, "sb_session", false).Routes(withSession(sess), passThrough)
	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if c := findCookie(rr, "sb_session"); c == nil || c.MaxAge >= 0 {
		t.Fatalf("expected cookie cleared, got %+v", c)
	}
	if _, err := store.Get(context.Background(), "s1"); err == nil {
		t.Fatal("expected session deleted")
	}
}

func TestHandlerMeClosesRejectedSession(t *testing.T) {
	backend := &stubBackend{routes: map[string]reply{
		"GET /auth/verify": fixed(http.StatusUnauthorized, `{"detail":"Token expired"}`),
	}}
	svc, store := newTestService(t, backend, nil)
	sess := &Session{ID: "s1", Token: "tok", ExpiresAt: testNow.Add(time.Hour)}
	_ = store.Save(context.Background(), sess, time.Hour)

	router := NewHandler(svc, "sb_session", false).Routes(withSession(sess), passThrough)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if c := findCookie(rr, "sb_session"); c == nil || c.MaxAge >= 0 {
		t.Fatalf("expected cookie cleared, got %+v", c)
	}
	if _, err := store.Get(context.Background(), "s1"); err == nil {
		t.Fatal("expected session deleted")
	}
}

func TestHandlerUpdateProfileShortPassword(t *testing.T) {
	backend := &stubBackend{}
	svc, _ := newTestService(t, backend, nil)
	sess := &Session{ID: "s1", Token: "tok", User: User{ID: "1"}}
	router := NewHandler(svc, "sb_session", false).UserRoutes(withSession(sess))

	req := httptest.NewRequest(http.MethodPatch, "/me", strings.NewReader(`{"password":"short"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	if resp := decodeEnvelope(t, rr); resp.Error.Message != "Password must be at least 8 characters." {
		t.Fatalf("unexpected message %q", resp.Error.Message)
	}
	if backend.callCount() != 0 {
		t.Fatalf("expected no backend calls, got %d", backend.callCount())
	}
}

func TestHandlerUpdateProfileRefreshesSessionUser(t *testing.T) {
	backend := &stubBackend{routes: map[string]reply{
		"PATCH /users/me": fixed(http.StatusOK, `{"id":1,"full_name":"Renamed","email":"a@example.com"}`),
	}}
	svc, store := newTestService(t, backend, nil)
	sess := &Session{ID: "s1", Token: "tok", User: User{ID: "1", FullName: "Old"}, ExpiresAt: testNow.Add(time.Hour)}
	_ = store.Save(context.Background(), sess, time.Hour)
	router := NewHandler(svc, "sb_session", false).UserRoutes(withSession(sess))

	req := httptest.NewRequest(http.MethodPatch, "/me", strings.NewReader(`{"full_name":"Renamed"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	stored, _ := store.Get(context.Background(), "s1")
	if stored.User.FullName != "Renamed" {
		t.Fatalf("expected session user updated, got %+v", stored.User)
	}
}

func TestHandlerAvatarRequiresFile(t *testing.T) {
	svc, _ := newTestService(t, &stubBackend{}, nil)
	sess := &Session{ID: "s1", Token: "tok", User: User{ID: "1"}}
	router := NewHandler(svc, "sb_session", false).UserRoutes(withSession(sess))

	req := httptest.NewRequest(http.MethodPost, "/me/avatar", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestRoutesRegistered(t *testing.T) {
	svc, _ := newTestService(t, &stubBackend{}, nil)
	h := NewHandler(svc, "sb_session", false)

	want := map[string]bool{
		"POST /login":    false,
		"POST /register": false,
		"POST /logout":   false,
		"GET /me":        false,
	}
	walk := func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		key := method + " " + strings.TrimSuffix(route, "/")
		if _, ok := want[key]; ok {
			want[key] = true
		}
		return nil
	}
	if err := chi.Walk(h.Routes(passThrough, passThrough), walk); err != nil {
		t.Fatalf("walk: %v", err)
	}
	for route, seen := range want {
		if !seen {
			t.Fatalf("route %s not registered", route)
		}
	}
}
