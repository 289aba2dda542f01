package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/spacebook/spacebook-api/internal/pkg/officeapi"
	"github.com/spacebook/spacebook-api/internal/pkg/storage"
)

type call struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]interface{}
}

type reply func(r *http.Request, body map[string]interface{}) (int, string)

// stubBackend answers "METHOD /path" routes and 404s everything else.
type stubBackend struct {
	mu     sync.Mutex
	calls  []call
	routes map[string]reply
}

func (b *stubBackend) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)

		b.mu.Lock()
		b.calls = append(b.calls, call{Method: r.Method, Path: r.URL.Path, Auth: r.Header.Get("Authorization"), Body: body})
		route := b.routes[r.Method+" "+r.URL.Path]
		b.mu.Unlock()

		status, out := http.StatusNotFound, `{"detail":"Not Found"}`
		if route != nil {
			status, out = route(r, body)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(out))
	})
}

func (b *stubBackend) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

func (b *stubBackend) at(i int) call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[i]
}

func (b *stubBackend) last() call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[len(b.calls)-1]
}

func fixed(status int, body string) reply {
	return func(*http.Request, map[string]interface{}) (int, string) { return status, body }
}

var testNow = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

// newTestService wires a client whose token comes from the request context.
func newTestService(t *testing.T, backend *stubBackend, avatars storage.Storage) (*Service, *MemoryStore) {
	t.Helper()
	server := httptest.NewServer(backend.handler())
	t.Cleanup(server.Close)

	client := officeapi.NewClient(officeapi.Config{BaseURL: server.URL, Timeout: time.Second}, officeapi.TokenFunc(TokenFromContext))
	store := NewMemoryStore()
	store.now = func() time.Time { return testNow }

	svc := NewService(client, store, 12*time.Hour, avatars, nil)
	svc.now = func() time.Time { return testNow }
	return svc, store
}

func loginBackend(token string) *stubBackend {
	return &stubBackend{routes: map[string]reply{
		"POST /auth/login": fixed(http.StatusOK, `{"access_token":"`+token+`","token_type":"bearer"}`),
		"GET /auth/verify": func(r *http.Request, _ map[string]interface{}) (int, string) {
			if r.Header.Get("Authorization") != "Bearer "+token {
				return http.StatusUnauthorized, `{"detail":"Invalid token"}`
			}
			return http.StatusOK, `{"id":5,"email":"ada@example.com","full_name":"Ada","role":"Role.admin"}`
		},
	}}
}

func TestLoginOpensSession(t *testing.T) {
	backend := loginBackend("opaque")
	svc, store := newTestService(t, backend, nil)

	sess, err := svc.Login(context.Background(), &LoginRequest{Email: " ada@example.com ", Password: "secret"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess.Token != "opaque" || sess.User.ID != "5" || !sess.User.IsAdmin() {
		t.Fatalf("unexpected session %+v", sess)
	}
	if !sess.ExpiresAt.Equal(testNow.Add(12 * time.Hour)) {
		t.Fatalf("expected configured ttl, got %s", sess.ExpiresAt)
	}
	if email := backend.at(0).Body["email"]; email != "ada@example.com" {
		t.Fatalf("expected trimmed email, got %v", email)
	}
	if backend.at(0).Auth != "" {
		t.Fatalf("login must not send a token, got %q", backend.at(0).Auth)
	}

	stored, err := store.Get(context.Background(), sess.ID)
	if err != nil || stored.Token != "opaque" {
		t.Fatalf("expected stored session, got %+v (%v)", stored, err)
	}
}

func TestLoginCapsSessionAtTokenExpiry(t *testing.T) {
	claims := gojwt.RegisteredClaims{ExpiresAt: gojwt.NewNumericDate(testNow.Add(time.Hour))}
	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	svc, _ := newTestService(t, loginBackend(token), nil)

	sess, err := svc.Login(context.Background(), &LoginRequest{Email: "ada@example.com", Password: "secret"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !sess.ExpiresAt.Equal(testNow.Add(time.Hour)) {
		t.Fatalf("expected token expiry, got %s", sess.ExpiresAt)
	}
}

func TestLoginRejectsExpiredToken(t *testing.T) {
	claims := gojwt.RegisteredClaims{ExpiresAt: gojwt.NewNumericDate(testNow.Add(-time.Minute))}
	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	svc, _ := newTestService(t, loginBackend(token), nil)

	if _, err := svc.Login(context.Background(), &LoginRequest{Email: "a@example.com", Password: "x"}); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestLoginWithoutAccessToken(t *testing.T) {
	backend := &stubBackend{routes: map[string]reply{
		"POST /auth/login": fixed(http.StatusOK, `{"detail":"ok"}`),
	}}
	svc, _ := newTestService(t, backend, nil)

	if _, err := svc.Login(context.Background(), &LoginRequest{Email: "a@example.com", Password: "x"}); !errors.Is(err, ErrNoAccessToken) {
		t.Fatalf("expected ErrNoAccessToken, got %v", err)
	}
}

func TestLoginBadCredentials(t *testing.T) {
	backend := &stubBackend{routes: map[string]reply{
		"POST /auth/login": fixed(http.StatusUnauthorized, `{"detail":"Incorrect email or password"}`),
	}}
	svc, _ := newTestService(t, backend, nil)

	_, err := svc.Login(context.Background(), &LoginRequest{Email: "a@example.com", Password: "x"})
	if !officeapi.IsAuthError(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Incorrect email or password") {
		t.Fatalf("expected backend message, got %q", err.Error())
	}
}

func TestRegisterDefaultsRole(t *testing.T) {
	backend := &stubBackend{routes: map[string]reply{
		"POST /auth/register": fixed(http.StatusCreated, ``),
	}}
	svc, _ := newTestService(t, backend, nil)

	user, err := svc.Register(context.Background(), &RegisterRequest{
		Email:    "new@example.com",
		FullName: "New Person",
		Password: "longenough",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if got := backend.last().Body["role"]; got != "employee" {
		t.Fatalf("expected employee role, got %v", got)
	}
	if _, ok := backend.last().Body["avatar_url"]; ok {
		t.Fatal("empty avatar_url must not be sent")
	}
	if user.Email != "new@example.com" || user.Role != RoleEmployee {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestRegisterUsesBackendUser(t *testing.T) {
	backend := &stubBackend{routes: map[string]reply{
		"POST /auth/register": fixed(http.StatusCreated, `{"id":9,"email":"boss@example.com","role":"admin"}`),
	}}
	svc, _ := newTestService(t, backend, nil)

	user, err := svc.Register(context.Background(), &RegisterRequest{Email: "boss@example.com", FullName: "Boss", Password: "x", Role: "admin"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.ID != "9" || !user.IsAdmin() {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestRefreshClosesRejectedSession(t *testing.T) {
	backend := &stubBackend{routes: map[string]reply{
		"GET /auth/verify": fixed(http.StatusUnauthorized, `{"detail":"Token expired"}`),
	}}
	svc, store := newTestService(t, backend, nil)
	ctx := context.Background()

	sess := &Session{ID: "s1", Token: "old", ExpiresAt: testNow.Add(time.Hour)}
	_ = store.Save(ctx, sess, time.Hour)

	if _, err := svc.Refresh(ctx, sess); !officeapi.IsAuthError(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if _, err := store.Get(ctx, "s1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected session removed, got %v", err)
	}
}

func TestRefreshKeepsSessionOnBackendOutage(t *testing.T) {
	backend := &stubBackend{routes: map[string]reply{
		"GET /auth/verify": fixed(http.StatusBadGateway, `oops`),
	}}
	svc, store := newTestService(t, backend, nil)
	ctx := context.Background()

	sess := &Session{ID: "s1", Token: "tok", ExpiresAt: testNow.Add(time.Hour)}
	_ = store.Save(ctx, sess, time.Hour)

	if _, err := svc.Refresh(ctx, sess); err == nil {
		t.Fatal("expected error")
	}
	if _, err := store.Get(ctx, "s1"); err != nil {
		t.Fatalf("session must survive a backend outage: %v", err)
	}
}

func TestMeWithoutProfileRoute(t *testing.T) {
	backend := &stubBackend{}
	svc, _ := newTestService(t, backend, nil)

	user, err := svc.Me(WithToken(context.Background(), "tok"))
	if err != nil || user != nil {
		t.Fatalf("expected nil user, got %+v (%v)", user, err)
	}
	if backend.callCount() != len(profilePaths) {
		t.Fatalf("expected %d calls, got %d", len(profilePaths), backend.callCount())
	}
}

func TestMeFallsThroughPaths(t *testing.T) {
	backend := &stubBackend{routes: map[string]reply{
		"GET /me": fixed(http.StatusOK, `{"id":3,"email":"me@example.com"}`),
	}}
	svc, _ := newTestService(t, backend, nil)

	user, err := svc.Me(WithToken(context.Background(), "tok"))
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if user == nil || user.ID != "3" {
		t.Fatalf("unexpected user %+v", user)
	}
	if got := backend.last().Auth; got != "Bearer tok" {
		t.Fatalf("expected context token, got %q", got)
	}
}

func TestUpdateProfileRejectsShortPassword(t *testing.T) {
	backend := &stubBackend{}
	svc, _ := newTestService(t, backend, nil)

	short := "1234567"
	_, err := svc.UpdateProfile(context.Background(), User{ID: "1"}, ProfileUpdate{Password: &short})
	if !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
	if err.Error() != "Password must be at least 8 characters." {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if backend.callCount() != 0 {
		t.Fatalf("expected no calls, got %d", backend.callCount())
	}
}

func TestUpdateProfileRejectsEmpty(t *testing.T) {
	svc, _ := newTestService(t, &stubBackend{}, nil)
	if _, err := svc.UpdateProfile(context.Background(), User{ID: "1"}, ProfileUpdate{}); !errors.Is(err, ErrNothingToUpdate) {
		t.Fatalf("expected ErrNothingToUpdate, got %v", err)
	}
}

func TestUpdateProfileFallsThroughMethods(t *testing.T) {
	backend := &stubBackend{routes: map[string]reply{
		"PATCH /users/me": fixed(http.StatusMethodNotAllowed, `{"detail":"Method Not Allowed"}`),
		"PUT /users/me":   fixed(http.StatusNoContent, ``),
	}}
	svc, _ := newTestService(t, backend, nil)

	name := "Ada L."
	user, err := svc.UpdateProfile(context.Background(), User{ID: "5", FullName: "Ada", Role: RoleAdmin}, ProfileUpdate{FullName: &name})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if user.FullName != "Ada L." || user.ID != "5" || !user.IsAdmin() {
		t.Fatalf("expected merged user, got %+v", user)
	}
	if backend.callCount() != 2 {
		t.Fatalf("expected 2 calls, got %d", backend.callCount())
	}
	body := backend.last().Body
	if body["full_name"] != "Ada L." || len(body) != 1 {
		t.Fatalf("expected partial body, got %v", body)
	}
}

func pngImage(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestUploadAvatar(t *testing.T) {
	dir := t.TempDir()
	avatars, err := storage.NewLocalStorage(dir, "http://cdn.test/avatars")
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	backend := &stubBackend{routes: map[string]reply{
		"PATCH /users/me": func(_ *http.Request, body map[string]interface{}) (int, string) {
			out, _ := json.Marshal(map[string]interface{}{"id": 5, "email": "ada@example.com", "avatar_url": body["avatar_url"]})
			return http.StatusOK, string(out)
		},
	}}
	svc, _ := newTestService(t, backend, avatars)

	user, err := svc.UploadAvatar(context.Background(), User{ID: "5"}, bytes.NewReader(pngImage(t, 800, 400)))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.HasPrefix(user.AvatarURL, "http://cdn.test/avatars/avatars/5/") || !strings.HasSuffix(user.AvatarURL, ".jpg") {
		t.Fatalf("unexpected avatar url %q", user.AvatarURL)
	}

	key := strings.TrimPrefix(user.AvatarURL, "http://cdn.test/avatars/")
	if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(key))); err != nil {
		t.Fatalf("expected stored avatar: %v", err)
	}
}

func TestUploadAvatarRemovesFileWhenProfileUpdateFails(t *testing.T) {
	dir := t.TempDir()
	avatars, _ := storage.NewLocalStorage(dir, "http://cdn.test")
	svc, _ := newTestService(t, &stubBackend{}, avatars)

	_, err := svc.UploadAvatar(context.Background(), User{ID: "5"}, bytes.NewReader(pngImage(t, 10, 10)))
	if !errors.Is(err, officeapi.ErrNotFound) {
		t.Fatalf("expected exhausted resolution, got %v", err)
	}

	entries, _ := os.ReadDir(filepath.Join(dir, "avatars", "5"))
	if len(entries) != 0 {
		t.Fatalf("expected orphan removed, found %d files", len(entries))
	}
}

func TestUploadAvatarRejectsNonImage(t *testing.T) {
	avatars, _ := storage.NewLocalStorage(t.TempDir(), "http://cdn.test")
	svc, _ := newTestService(t, &stubBackend{}, avatars)

	_, err := svc.UploadAvatar(context.Background(), User{ID: "5"}, strings.NewReader("just text"))
	if !errors.Is(err, ErrInvalidAvatar) {
		t.Fatalf("expected ErrInvalidAvatar, got %v", err)
	}
}

func TestUploadAvatarDisabled(t *testing.T) {
	svc, _ := newTestService(t, &stubBackend{}, nil)
	if _, err := svc.UploadAvatar(context.Background(), User{ID: "5"}, strings.NewReader("x")); !errors.Is(err, ErrAvatarsDisabled) {
		t.Fatalf("expected ErrAvatarsDisabled, got %v", err)
	}
}

func TestCurrentUserPrefersSession(t *testing.T) {
	backend := &stubBackend{}
	svc, _ := newTestService(t, backend, nil)

	ctx := WithSession(context.Background(), &Session{ID: "s1", Token: "tok", User: User{ID: "1"}})
	user, err := svc.CurrentUser(ctx)
	if err != nil || user.ID != "1" {
		t.Fatalf("unexpected %+v (%v)", user, err)
	}
	if backend.callCount() != 0 {
		t.Fatalf("expected no calls, got %d", backend.callCount())
	}
}

func TestCurrentUserFallsBackToVerify(t *testing.T) {
	backend := loginBackend("tok")
	svc, _ := newTestService(t, backend, nil)

	user, err := svc.CurrentUser(WithToken(context.Background(), "tok"))
	if err != nil {
		t.Fatalf("current user: %v", err)
	}
	if user.ID != "5" {
		t.Fatalf("unexpected user %+v", user)
	}

	if _, err := svc.CurrentUser(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}
