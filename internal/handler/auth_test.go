package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cubbyhole/cubbyhole/internal/auth"
	"github.com/cubbyhole/cubbyhole/internal/model"
	"github.com/cubbyhole/cubbyhole/internal/service"
)

// stubAuthService implements AuthService with injectable behavior.
type stubAuthService struct {
	registerFn func(ctx context.Context, name, email, password string) (*model.User, string, error)
	loginFn    func(ctx context.Context, email, password string) (*model.User, string, error)
	getUserFn  func(ctx context.Context, id string) (*model.User, error)
}

func (s *stubAuthService) Register(ctx context.Context, name, email, password string) (*model.User, string, error) {
	return s.registerFn(ctx, name, email, password)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthService) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.getUserFn(ctx, id)
}

func (s *stubAuthService) SessionTTL() time.Duration {
	return 7 * 24 * time.Hour
}

func testUser() *model.User {
	return &model.User{
		ID:        "user-1",
		Email:     "ada@example.com",
		Name:      "Ada",
		CreatedAt: time.Now().UTC(),
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			return c
		}
	}
	return nil
}

func TestAuthHandler_Register(t *testing.T) {
	svc := &stubAuthService{
		registerFn: func(_ context.Context, name, email, password string) (*model.User, string, error) {
			return testUser(), "signed-token", nil
		},
	}
	h := NewAuthHandler(svc, discardLogger(), false)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register",
		strings.NewReader(`{"name":"Ada","email":"ada@example.com","password":"hunter2hunter2"}`))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	cookie := sessionCookie(rec)
	if cookie == nil {
		t.Fatal("expected a session cookie")
	}
	if cookie.Value != "signed-token" {
		t.Errorf("expected token in cookie, got %s", cookie.Value)
	}
	if !cookie.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}
	if cookie.Path != "/" {
		t.Errorf("expected cookie path /, got %s", cookie.Path)
	}
	if cookie.MaxAge != int((7 * 24 * time.Hour).Seconds()) {
		t.Errorf("expected 7d MaxAge, got %d", cookie.MaxAge)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["email"] != "ada@example.com" {
		t.Errorf("unexpected body: %v", body)
	}
	if _, ok := body["password_hash"]; ok {
		t.Error("password hash must never appear in responses")
	}
}

func TestAuthHandler_Register_Conflict(t *testing.T) {
	svc := &stubAuthService{
		registerFn: func(_ context.Context, name, email, password string) (*model.User, string, error) {
			return nil, "", service.ErrEmailExists
		},
	}
	h := NewAuthHandler(svc, discardLogger(), false)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register",
		strings.NewReader(`{"name":"Ada","email":"ada@example.com","password":"hunter2hunter2"}`))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
	if sessionCookie(rec) != nil {
		t.Error("no cookie must be set on failure")
	}
}

func TestAuthHandler_Register_BadJSON(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{}, discardLogger(), false)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestAuthHandler_Login(t *testing.T) {
	svc := &stubAuthService{
		loginFn: func(_ context.Context, email, password string) (*model.User, string, error) {
			return testUser(), "signed-token", nil
		},
	}
	h := NewAuthHandler(svc, discardLogger(), true)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"ada@example.com","password":"hunter2hunter2"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	cookie := sessionCookie(rec)
	if cookie == nil {
		t.Fatal("expected a session cookie")
	}
	if !cookie.Secure {
		t.Error("expected Secure cookie when configured")
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("expected SameSite=Lax, got %v", cookie.SameSite)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	svc := &stubAuthService{
		loginFn: func(_ context.Context, email, password string) (*model.User, string, error) {
			return nil, "", service.ErrInvalidCredentials
		},
	}
	h := NewAuthHandler(svc, discardLogger(), false)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"ada@example.com","password":"wrong"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["code"] != "INVALID_CREDENTIALS" {
		t.Errorf("unexpected error code: %v", body)
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{}, discardLogger(), false)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	cookie := sessionCookie(rec)
	if cookie == nil {
		t.Fatal("expected an expiring cookie")
	}
	if cookie.Value != "" || cookie.MaxAge >= 0 {
		t.Errorf("expected cleared cookie, got value=%q maxAge=%d", cookie.Value, cookie.MaxAge)
	}
}

func TestAuthHandler_Me(t *testing.T) {
	svc := &stubAuthService{
		getUserFn: func(_ context.Context, id string) (*model.User, error) {
			if id != "user-1" {
				t.Errorf("expected user-1, got %s", id)
			}
			return testUser(), nil
		},
	}
	h := NewAuthHandler(svc, discardLogger(), false)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req = req.WithContext(auth.ContextWithUserID(req.Context(), "user-1"))
	rec := httptest.NewRecorder()
	h.Me(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
