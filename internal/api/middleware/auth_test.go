package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-service/internal/core/domain"
)

type stubAuthorizer struct {
	resolveFn func(ctx context.Context, credential string) (*domain.User, error)
}

func (s *stubAuthorizer) ResolveCaller(ctx context.Context, credential string) (*domain.User, error) {
	return s.resolveFn(ctx, credential)
}

func (s *stubAuthorizer) RequireRole(user *domain.User, capability domain.Capability) (*domain.User, error) {
	if user == nil {
		return nil, domain.Unauthorized("missing authentication")
	}
	if !user.Role.Can(capability) {
		return nil, domain.Forbidden("insufficient privileges")
	}
	return user, nil
}

func TestAuthMiddleware_SetsCaller(t *testing.T) {
	e := echo.New()
	stub := &stubAuthorizer{
		resolveFn: func(ctx context.Context, credential string) (*domain.User, error) {
			if credential != "Bearer token123" {
				t.Fatalf("unexpected credential %q", credential)
			}
			return &domain.User{ID: "u1", Username: "alice", Role: domain.RoleUser, Active: true}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer token123")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	handler := Auth(stub)(func(c echo.Context) error {
		called = true
		if user := Caller(c); user == nil || user.ID != "u1" {
			t.Fatalf("caller not set: %+v", user)
		}
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next handler not called")
	}
}

func TestAuthMiddleware_RejectsUnresolvedCaller(t *testing.T) {
	e := echo.New()
	stub := &stubAuthorizer{
		resolveFn: func(ctx context.Context, credential string) (*domain.User, error) {
			return nil, domain.Unauthorized("invalid token")
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := Auth(stub)(func(c echo.Context) error {
		t.Fatalf("should not reach next handler")
		return nil
	})

	err := handler(c)
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestCaller_MissingReturnsNil(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if Caller(c) != nil {
		t.Fatal("expected nil caller")
	}
}
