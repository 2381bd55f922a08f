package ports

import (
	"context"

	"github.com/99minutos/identity-service/internal/core/domain"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// ListUsersInput is a page request; zero values fall back to defaults.
type ListUsersInput struct {
	Page    int
	PerPage int
}

// UserService covers profile self-service and user administration.
type UserService interface {
	GetProfile(ctx context.Context, id string) (*domain.User, error)
	UpdateProfile(ctx context.Context, id string, in domain.ProfileUpdate) (*domain.User, error)
	ListUsers(ctx context.Context, in ListUsersInput) ([]domain.User, error)
	UpdateUser(ctx context.Context, id string, in domain.AdminUpdate) (*domain.User, error)
	SetUserRole(ctx context.Context, id string, role domain.Role) (*domain.User, error)
	DeactivateUser(ctx context.Context, id string) error
}
