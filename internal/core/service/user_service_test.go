package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

func TestUserService_GetProfile(t *testing.T) {
	f := newFixture(t)
	user := f.register(t, "a@x.com", "alice", "pw123456")

	got, err := f.users.GetProfile(context.Background(), user.ID)
	if err != nil || got.Email != "a@x.com" {
		t.Fatalf("unexpected profile: %+v %v", got, err)
	}

	_, err = f.users.GetProfile(context.Background(), "missing")
	assertKind(t, err, domain.ErrNotFound)
}

func TestUserService_UpdateProfile(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "a@x.com", "alice", "pw123456")
	f.register(t, "b@x.com", "bob", "pw123456")

	email := "alice@x.com"
	updated, err := f.users.UpdateProfile(context.Background(), alice.ID, domain.ProfileUpdate{Email: &email})
	if err != nil || updated.Email != email || updated.Username != "alice" {
		t.Fatalf("unexpected update: %+v %v", updated, err)
	}

	taken := "b@x.com"
	_, err = f.users.UpdateProfile(context.Background(), alice.ID, domain.ProfileUpdate{Email: &taken})
	assertKind(t, err, domain.ErrConflict)

	takenName := "bob"
	_, err = f.users.UpdateProfile(context.Background(), alice.ID, domain.ProfileUpdate{Username: &takenName})
	assertKind(t, err, domain.ErrConflict)

	own := "alice"
	if _, err := f.users.UpdateProfile(context.Background(), alice.ID, domain.ProfileUpdate{Username: &own}); err != nil {
		t.Fatalf("re-submitting own username should succeed: %v", err)
	}
}

func TestUserService_ListUsersPaging(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 25; i++ {
		f.register(t, fmt.Sprintf("u%d@x.com", i), fmt.Sprintf("user%02d", i), "pw123456")
	}

	page, err := f.users.ListUsers(context.Background(), ports.ListUsersInput{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != ports.DefaultPerPage || page[0].Username != "user24" {
		t.Fatalf("unexpected first page: %d items, first %s", len(page), page[0].Username)
	}

	page, _ = f.users.ListUsers(context.Background(), ports.ListUsersInput{Page: 2, PerPage: 20})
	if len(page) != 5 || page[4].Username != "user00" {
		t.Fatalf("unexpected second page: %d items", len(page))
	}

	page, _ = f.users.ListUsers(context.Background(), ports.ListUsersInput{Page: -3, PerPage: 1000})
	if len(page) != 25 {
		t.Fatalf("expected clamped page of 25, got %d", len(page))
	}
}

func TestUserService_UpdateUser(t *testing.T) {
	f := newFixture(t)
	user := f.register(t, "a@x.com", "alice", "pw123456")

	bogus := domain.Role("root")
	_, err := f.users.UpdateUser(context.Background(), user.ID, domain.AdminUpdate{Role: &bogus})
	assertKind(t, err, domain.ErrValidation)

	inactive := false
	admin := domain.RoleAdmin
	updated, err := f.users.UpdateUser(context.Background(), user.ID, domain.AdminUpdate{Role: &admin, Active: &inactive})
	if err != nil || updated.Role != domain.RoleAdmin || updated.Active {
		t.Fatalf("unexpected update: %+v %v", updated, err)
	}

	_, err = f.users.UpdateUser(context.Background(), "missing", domain.AdminUpdate{Role: &admin})
	assertKind(t, err, domain.ErrNotFound)
}

func TestUserService_DeactivateUser(t *testing.T) {
	f := newFixture(t)
	cache := newStubCache()
	f.users = NewUserService(f.registry, cache, f.users.log)
	user := f.register(t, "a@x.com", "alice", "pw123456")

	if err := f.users.DeactivateUser(context.Background(), user.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if len(cache.invalidated) != 1 {
		t.Fatalf("expected cache invalidation")
	}
	assertKind(t, f.users.DeactivateUser(context.Background(), "missing"), domain.ErrNotFound)
}

// End-to-end: register, login, resolve, then admin gating before and after
// an external role elevation.
func TestCredentialLifecycle_Scenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user := f.register(t, "a@x.com", "alice", "pw123456")
	if user.Role != domain.RoleUser || !user.Active {
		t.Fatalf("unexpected registration result: %+v", user)
	}

	session, err := f.auth.Login(ctx, "a@x.com", "pw123456")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	caller, err := f.gate.ResolveCaller(ctx, "Bearer "+session.AccessToken)
	if err != nil || caller.ID != user.ID {
		t.Fatalf("resolve: %+v %v", caller, err)
	}

	_, err = f.gate.RequireRole(caller, domain.CapabilityManageUsers)
	assertKind(t, err, domain.ErrForbidden)

	admin := domain.RoleAdmin
	if _, err := f.registry.UpdateAdminFields(ctx, user.ID, domain.AdminUpdate{Role: &admin}); err != nil {
		t.Fatalf("elevate: %v", err)
	}

	// Same access token; the gate re-reads the live identity.
	caller, err = f.gate.ResolveCaller(ctx, "Bearer "+session.AccessToken)
	if err != nil {
		t.Fatalf("resolve after elevation: %v", err)
	}
	if _, err := f.gate.RequireRole(caller, domain.CapabilityManageUsers); err != nil {
		t.Fatalf("expected admin to pass, got %v", err)
	}
	if caller.ID != user.ID {
		t.Fatalf("identity changed across elevation")
	}
}
