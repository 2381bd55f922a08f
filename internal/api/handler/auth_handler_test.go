package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-service/internal/api/middleware"
	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

type stubAuthService struct {
	registerFn func(ctx context.Context, in ports.RegisterInput) (*domain.User, error)
	loginFn    func(ctx context.Context, email, password string) (*ports.Session, error)
	refreshFn  func(ctx context.Context, token string) (*ports.Session, error)
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (*ports.Session, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthService) Refresh(ctx context.Context, token string) (*ports.Session, error) {
	return s.refreshFn(ctx, token)
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func alice() *domain.User {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &domain.User{
		ID: "7f1c2a52-0a55-4c8f-9f43-1d8a9c1e2b3d", Email: "alice@example.com", Username: "alice",
		Role: domain.RoleUser, Active: true, CreatedAt: ts, UpdatedAt: ts,
	}
}

func TestAuthHandler_Register_Success(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
			if in.Email != "alice@example.com" || in.Username != "alice" || in.Password != "correct-horse" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return alice(), nil
		},
	}
	handler := NewAuthHandler(stub)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/register",
		`{"email":"alice@example.com","username":"alice","password":"correct-horse"}`), rec)

	if err := handler.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["username"] != "alice" || resp["role"] != "user" || resp["is_active"] != true {
		t.Fatalf("unexpected user payload: %+v", resp)
	}
	if _, leaked := resp["password_hash"]; leaked {
		t.Fatalf("digest must not be rendered: %+v", resp)
	}
}

func TestAuthHandler_Register_Conflict(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
			return nil, domain.Conflict("email already exists")
		},
	}
	handler := NewAuthHandler(stub)

	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/register",
		`{"email":"bob@example.com","username":"bob","password":"password1"}`), httptest.NewRecorder())

	if err := handler.Register(c); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestAuthHandler_Register_RejectsBeforeService(t *testing.T) {
	cases := map[string]string{
		"not json":       "not-json",
		"bad email":      `{"email":"nope","username":"bob","password":"password1"}`,
		"short password": `{"email":"bob@example.com","username":"bob","password":"short"}`,
		"short username": `{"email":"bob@example.com","username":"bo","password":"password1"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			e := newEcho()
			stub := &stubAuthService{
				registerFn: func(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
					t.Fatalf("should not be called")
					return nil, nil
				},
			}
			c := e.NewContext(jsonRequest(http.MethodPost, "/auth/register", body), httptest.NewRecorder())

			err := NewAuthHandler(stub).Register(c)
			var he *echo.HTTPError
			if !errors.Is(err, domain.ErrValidation) && !(errors.As(err, &he) && he.Code == http.StatusBadRequest) {
				t.Fatalf("expected a 400 class error, got %v", err)
			}
		})
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, email, password string) (*ports.Session, error) {
			if email != "alice@example.com" || password != "correct-horse" {
				t.Fatalf("unexpected args: %s %s", email, password)
			}
			return &ports.Session{AccessToken: "access123", RefreshToken: "refresh123", User: alice()}, nil
		},
	}
	handler := NewAuthHandler(stub)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/login",
		`{"email":"alice@example.com","password":"correct-horse"}`), rec)

	if err := handler.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp sessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.AccessToken != "access123" || resp.RefreshToken != "refresh123" || resp.TokenType != "Bearer" {
		t.Fatalf("unexpected tokens: %+v", resp)
	}
	if resp.User.Username != "alice" {
		t.Fatalf("unexpected user payload: %+v", resp.User)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, email, password string) (*ports.Session, error) {
			return nil, domain.Unauthorized("invalid credentials")
		},
	}

	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/login",
		`{"email":"alice@example.com","password":"wrong-password"}`), httptest.NewRecorder())

	err := NewAuthHandler(stub).Login(c)
	if !errors.Is(err, domain.ErrUnauthorized) || domain.Message(err) != "invalid credentials" {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}

func TestAuthHandler_Refresh(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		refreshFn: func(ctx context.Context, token string) (*ports.Session, error) {
			if token != "refresh-token-value" {
				t.Fatalf("unexpected token %q", token)
			}
			return &ports.Session{AccessToken: "a2", RefreshToken: "r2", User: alice()}, nil
		},
	}

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/refresh", `{"refresh_token":"refresh-token-value"}`), rec)

	if err := NewAuthHandler(stub).Refresh(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthHandler_Refresh_TooShort(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		refreshFn: func(ctx context.Context, token string) (*ports.Session, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}

	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/refresh", `{"refresh_token":"short"}`), httptest.NewRecorder())

	if err := NewAuthHandler(stub).Refresh(c); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	e := newEcho()
	handler := NewAuthHandler(&stubAuthService{})

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/auth/logout", nil), rec)
	c.Set(middleware.CallerKey, alice())

	if err := handler.Logout(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	anon := e.NewContext(httptest.NewRequest(http.MethodPost, "/auth/logout", nil), httptest.NewRecorder())
	if err := handler.Logout(anon); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
