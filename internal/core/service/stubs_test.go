package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
	"github.com/99minutos/identity-service/internal/core/security"
	"github.com/99minutos/identity-service/internal/infrastructure/db/memory"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

// stubHasher is a fast stand-in for Argon2; digests look like "hashed:<pw>".
type stubHasher struct {
	hashErr error
}

func (h *stubHasher) Hash(_ context.Context, plaintext string) (string, error) {
	if h.hashErr != nil {
		return "", h.hashErr
	}
	return "hashed:" + plaintext, nil
}

func (h *stubHasher) Verify(_ context.Context, digest, candidate string) (bool, error) {
	rest, ok := strings.CutPrefix(digest, "hashed:")
	if !ok {
		return false, fmt.Errorf("digest %q: %w", digest, ports.ErrUnusableDigest)
	}
	return rest == candidate, nil
}

type stubCache struct {
	users       map[string]domain.User
	gets        int
	invalidated []string
}

func newStubCache() *stubCache {
	return &stubCache{users: make(map[string]domain.User)}
}

func (c *stubCache) Get(_ context.Context, id string) (*domain.User, bool, error) {
	c.gets++
	u, ok := c.users[id]
	if !ok {
		return nil, false, nil
	}
	return &u, true, nil
}

func (c *stubCache) Set(_ context.Context, user *domain.User) error {
	c.users[user.ID] = *user
	return nil
}

func (c *stubCache) Invalidate(_ context.Context, id string) error {
	delete(c.users, id)
	c.invalidated = append(c.invalidated, id)
	return nil
}

// brokenRegistry fails every call that is not explicitly delegated.
type brokenRegistry struct {
	ports.UserRegistry
	err error
}

func (r *brokenRegistry) FindByEmail(context.Context, string) (*domain.Credential, error) {
	return nil, domain.Internal("find user by email", r.err)
}

func (r *brokenRegistry) FindByID(context.Context, string) (*domain.Credential, error) {
	return nil, domain.Internal("find user by id", r.err)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type fixture struct {
	registry *memory.UserRegistry
	tokens   *security.JWTService
	auth     *AuthService
	gate     *Gate
	users    *UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tokens, err := security.NewJWTService("test-secret", 15*time.Minute, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	registry := memory.NewUserRegistry()
	return &fixture{
		registry: registry,
		tokens:   tokens,
		auth:     NewAuthService(registry, &stubHasher{}, tokens, zerolog.Nop()),
		gate:     NewGate(registry, tokens, nil, zerolog.Nop()),
		users:    NewUserService(registry, nil, zerolog.Nop()),
	}
}

func (f *fixture) register(t *testing.T, email, username, password string) *domain.User {
	t.Helper()
	u, err := f.auth.Register(context.Background(), ports.RegisterInput{Email: email, Username: username, Password: password})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return u
}

func assertKind(t *testing.T, err, kind error) {
	t.Helper()
	if !errors.Is(err, kind) {
		t.Fatalf("expected %v, got %v", kind, err)
	}
}
