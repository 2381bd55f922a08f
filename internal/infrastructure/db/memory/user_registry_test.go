package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/99minutos/identity-service/internal/core/domain"
)

func create(t *testing.T, r *UserRegistry, email, username string) *domain.User {
	t.Helper()
	u, err := r.Create(context.Background(), domain.NewUser{
		Email: email, Username: username, PasswordHash: "digest", Role: domain.RoleUser, Active: true,
	})
	if err != nil {
		t.Fatalf("create %s: %v", email, err)
	}
	return u
}

func TestUserRegistry_CreateAndFind(t *testing.T) {
	r := NewUserRegistry()
	ctx := context.Background()
	u := create(t, r, "a@x.com", "alice")

	if u.ID == "" || !u.Active || u.Role != domain.RoleUser {
		t.Fatalf("unexpected user: %+v", u)
	}

	cred, err := r.FindByEmail(ctx, "a@x.com")
	if err != nil || cred.PasswordHash != "digest" || cred.User.ID != u.ID {
		t.Fatalf("find by email: %+v %v", cred, err)
	}
	if _, err := r.FindByUsername(ctx, "alice"); err != nil {
		t.Fatalf("find by username: %v", err)
	}
	if _, err := r.FindByID(ctx, u.ID); err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if _, err := r.FindByEmail(ctx, "A@x.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected case-sensitive miss, got %v", err)
	}
}

func TestUserRegistry_Uniqueness(t *testing.T) {
	r := NewUserRegistry()
	ctx := context.Background()
	create(t, r, "a@x.com", "alice")
	bob := create(t, r, "b@x.com", "bob")

	if _, err := r.Create(ctx, domain.NewUser{Email: "a@x.com", Username: "other"}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict on email, got %v", err)
	}
	if _, err := r.Create(ctx, domain.NewUser{Email: "c@x.com", Username: "alice"}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict on username, got %v", err)
	}

	taken := "alice"
	if _, err := r.UpdateProfile(ctx, bob.ID, domain.ProfileUpdate{Username: &taken}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict on update, got %v", err)
	}
	own := "bob"
	if _, err := r.UpdateProfile(ctx, bob.ID, domain.ProfileUpdate{Username: &own}); err != nil {
		t.Fatalf("keeping own username should succeed: %v", err)
	}
}

func TestUserRegistry_AdminFieldsAndSetActive(t *testing.T) {
	r := NewUserRegistry()
	ctx := context.Background()
	u := create(t, r, "a@x.com", "alice")

	admin := domain.RoleAdmin
	updated, err := r.UpdateAdminFields(ctx, u.ID, domain.AdminUpdate{Role: &admin})
	if err != nil || updated.Role != domain.RoleAdmin || updated.Email != "a@x.com" {
		t.Fatalf("unexpected update: %+v %v", updated, err)
	}

	if err := r.SetActive(ctx, u.ID, false); err != nil {
		t.Fatalf("set active: %v", err)
	}
	cred, _ := r.FindByID(ctx, u.ID)
	if cred.User.Active {
		t.Fatalf("expected inactive")
	}

	if err := r.SetActive(ctx, "missing", false); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := r.UpdateAdminFields(ctx, "missing", domain.AdminUpdate{}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUserRegistry_ListNewestFirst(t *testing.T) {
	r := NewUserRegistry()
	ctx := context.Background()
	create(t, r, "1@x.com", "one")
	create(t, r, "2@x.com", "two")
	create(t, r, "3@x.com", "three")

	users, err := r.List(ctx, 2, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 2 || users[0].Username != "three" || users[1].Username != "two" {
		t.Fatalf("unexpected page: %+v", users)
	}

	users, _ = r.List(ctx, 2, 2)
	if len(users) != 1 || users[0].Username != "one" {
		t.Fatalf("unexpected second page: %+v", users)
	}

	users, _ = r.List(ctx, 2, 10)
	if len(users) != 0 {
		t.Fatalf("expected empty page, got %d", len(users))
	}
}
