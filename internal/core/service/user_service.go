package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

// UserService implements profile self-service and user administration.
type UserService struct {
	registry ports.UserRegistry
	cache    ports.IdentityCache
	log      zerolog.Logger
}

// NewUserService returns a UserService. cache may be nil; when set, every
// mutation invalidates the affected identity.
func NewUserService(registry ports.UserRegistry, cache ports.IdentityCache, log zerolog.Logger) *UserService {
	return &UserService{registry: registry, cache: cache, log: log}
}

func (s *UserService) GetProfile(ctx context.Context, id string) (*domain.User, error) {
	cred, err := s.registry.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &cred.User, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, id string, in domain.ProfileUpdate) (*domain.User, error) {
	if err := s.checkUnique(ctx, id, in.Email, in.Username); err != nil {
		return nil, err
	}
	user, err := s.registry.UpdateProfile(ctx, id, in)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	return user, nil
}

// ListUsers returns one page of identities, newest first.
func (s *UserService) ListUsers(ctx context.Context, in ports.ListUsersInput) ([]domain.User, error) {
	page := max(in.Page, 1)
	perPage := in.PerPage
	if perPage <= 0 {
		perPage = ports.DefaultPerPage
	}
	perPage = min(perPage, ports.MaxPerPage)

	return s.registry.List(ctx, perPage, (page-1)*perPage)
}

func (s *UserService) UpdateUser(ctx context.Context, id string, in domain.AdminUpdate) (*domain.User, error) {
	if in.Role != nil && !in.Role.Valid() {
		return nil, domain.Validation("invalid role: " + string(*in.Role))
	}
	if err := s.checkUnique(ctx, id, in.Email, in.Username); err != nil {
		return nil, err
	}
	user, err := s.registry.UpdateAdminFields(ctx, id, in)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	s.log.Info().Str("user_id", id).Str("role", string(user.Role)).Bool("active", user.Active).Msg("user updated")
	return user, nil
}

func (s *UserService) SetUserRole(ctx context.Context, id string, role domain.Role) (*domain.User, error) {
	return s.UpdateUser(ctx, id, domain.AdminUpdate{Role: &role})
}

func (s *UserService) DeactivateUser(ctx context.Context, id string) error {
	if err := s.registry.SetActive(ctx, id, false); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	s.log.Info().Str("user_id", id).Msg("user deactivated")
	return nil
}

// checkUnique rejects an email or username already held by another identity.
func (s *UserService) checkUnique(ctx context.Context, id string, email, username *string) error {
	if email != nil {
		existing, err := s.registry.FindByEmail(ctx, *email)
		switch {
		case err == nil && existing.User.ID != id:
			return domain.Conflict("email already exists")
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			return err
		}
	}
	if username != nil {
		existing, err := s.registry.FindByUsername(ctx, *username)
		switch {
		case err == nil && existing.ID != id:
			return domain.Conflict("username already exists")
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			return err
		}
	}
	return nil
}

func (s *UserService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.log.Warn().Err(err).Str("user_id", id).Msg("identity cache invalidation failed")
	}
}
