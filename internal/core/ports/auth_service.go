package ports

import (
	"context"

	"github.com/99minutos/identity-service/internal/core/domain"
)

// RegisterInput is the DTO passed from the transport layer to AuthService.
type RegisterInput struct {
	Email    string
	Username string
	Password string
}

// Session is the transient result of a login or refresh.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         *domain.User
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
}

// Authorizer resolves callers from bearer credentials and gates capabilities.
type Authorizer interface {
	ResolveCaller(ctx context.Context, credential string) (*domain.User, error)
	RequireRole(user *domain.User, capability domain.Capability) (*domain.User, error)
}
