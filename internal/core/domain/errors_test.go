package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Classification(t *testing.T) {
	cause := errors.New("driver: connection refused")
	cases := []struct {
		err  error
		kind error
		msg  string
	}{
		{Validation("bad email"), ErrValidation, "bad email"},
		{Conflict("email already exists"), ErrConflict, "email already exists"},
		{Unauthorized("invalid credentials"), ErrUnauthorized, "invalid credentials"},
		{UnauthorizedCause("invalid token", cause), ErrUnauthorized, "invalid token"},
		{Forbidden("insufficient privileges"), ErrForbidden, "insufficient privileges"},
		{NotFound("user not found"), ErrNotFound, "user not found"},
		{Internal("find user", cause), ErrInternal, "internal server error"},
		{cause, ErrInternal, "internal server error"},
	}
	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.kind {
			t.Fatalf("%v: expected kind %v, got %v", tc.err, tc.kind, got)
		}
		if got := Message(tc.err); got != tc.msg {
			t.Fatalf("%v: expected message %q, got %q", tc.err, tc.msg, got)
		}
	}
}

func TestError_WrappingKeepsKindAndCause(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("create user: %w", Internal("insert user", cause))

	if !errors.Is(err, ErrInternal) {
		t.Fatalf("expected ErrInternal")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable")
	}
	if errors.Is(err, ErrConflict) {
		t.Fatalf("unexpected ErrConflict match")
	}
}

func TestRole_Capabilities(t *testing.T) {
	if !RoleAdmin.Can(CapabilityManageUsers) {
		t.Fatalf("admin must manage users")
	}
	if RoleUser.Can(CapabilityManageUsers) {
		t.Fatalf("user must not manage users")
	}
	if _, err := ParseRole("owner"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if r, err := ParseRole("admin"); err != nil || r != RoleAdmin {
		t.Fatalf("unexpected parse: %v %v", r, err)
	}
}
