package ports

import (
	"context"

	"github.com/99minutos/identity-service/internal/core/domain"
)

// UserRegistry is the storage capability the core depends on. Implementations
// enforce email/username uniqueness atomically and report violations as
// domain.ErrConflict; missing identities are reported as domain.ErrNotFound.
// Any other failure is wrapped as domain.ErrInternal.
type UserRegistry interface {
	FindByEmail(ctx context.Context, email string) (*domain.Credential, error)
	// FindByUsername is an existence check; no digest is returned.
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.Credential, error)
	Create(ctx context.Context, in domain.NewUser) (*domain.User, error)
	UpdateProfile(ctx context.Context, id string, in domain.ProfileUpdate) (*domain.User, error)
	UpdateAdminFields(ctx context.Context, id string, in domain.AdminUpdate) (*domain.User, error)
	SetActive(ctx context.Context, id string, active bool) error
	// List returns identities ordered by creation time, newest first.
	List(ctx context.Context, limit, offset int) ([]domain.User, error)
}

// IdentityCache holds short-lived identity snapshots for the authorization
// hot path. A miss is reported as (nil, false, nil).
type IdentityCache interface {
	Get(ctx context.Context, id string) (*domain.User, bool, error)
	Set(ctx context.Context, user *domain.User) error
	Invalidate(ctx context.Context, id string) error
}
