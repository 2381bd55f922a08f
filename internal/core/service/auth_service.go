package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

const (
	msgInvalidCredentials = "invalid credentials"
	msgInvalidToken       = "invalid token"
	msgUserInactive       = "user is inactive"
)

// AuthService implements registration, login and token refresh.
type AuthService struct {
	registry ports.UserRegistry
	hasher   ports.PasswordHasher
	tokens   ports.TokenService
	log      zerolog.Logger
}

func NewAuthService(registry ports.UserRegistry, hasher ports.PasswordHasher, tokens ports.TokenService, log zerolog.Logger) *AuthService {
	return &AuthService{registry: registry, hasher: hasher, tokens: tokens, log: log}
}

// Register creates a new active identity with role user.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	if in.Email == "" || in.Username == "" || in.Password == "" {
		return nil, domain.Validation("email, username and password are required")
	}

	if _, err := s.registry.FindByEmail(ctx, in.Email); err == nil {
		return nil, domain.Conflict("email already exists")
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	if _, err := s.registry.FindByUsername(ctx, in.Username); err == nil {
		return nil, domain.Conflict("username already exists")
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	digest, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, domain.Internal("hash password", err)
	}

	// The registry re-checks uniqueness atomically; a concurrent registration
	// surfaces here as a conflict.
	user, err := s.registry.Create(ctx, domain.NewUser{
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: digest,
		Role:         domain.RoleUser,
		Active:       true,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", user.ID).Msg("user registered")
	return user, nil
}

// Login exchanges email and password for a fresh token pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.Session, error) {
	if email == "" || password == "" {
		return nil, domain.Validation("email and password are required")
	}

	cred, err := s.registry.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Unauthorized(msgInvalidCredentials)
		}
		return nil, err
	}

	ok, err := s.hasher.Verify(ctx, cred.PasswordHash, password)
	if err != nil {
		if !errors.Is(err, ports.ErrUnusableDigest) {
			return nil, domain.Internal("verify password", err)
		}
		// Same answer as a wrong password; the distinction only goes to logs.
		s.log.Warn().Err(err).Str("user_id", cred.User.ID).Msg("stored password digest could not be verified")
		return nil, domain.Unauthorized(msgInvalidCredentials)
	}
	if !ok {
		return nil, domain.Unauthorized(msgInvalidCredentials)
	}

	if !cred.User.Active {
		return nil, domain.Unauthorized(msgUserInactive)
	}

	return s.issueSession(&cred.User)
}

// Refresh rotates a refresh token into a new token pair. The presented token
// stays valid until it expires; there is no revocation store.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*ports.Session, error) {
	claims, err := s.tokens.Decode(refreshToken)
	if err != nil {
		s.log.Debug().Err(err).Msg("refresh token rejected")
		return nil, err
	}
	if claims.Kind != ports.TokenRefresh {
		return nil, domain.Unauthorized(msgInvalidToken)
	}

	user, err := s.liveIdentity(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}

	return s.issueSession(user)
}

// liveIdentity re-reads the identity named by a token subject and requires it
// to exist and be active.
func (s *AuthService) liveIdentity(ctx context.Context, subject string) (*domain.User, error) {
	if _, err := uuid.Parse(subject); err != nil {
		return nil, domain.Unauthorized(msgInvalidToken)
	}
	cred, err := s.registry.FindByID(ctx, subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Unauthorized(msgInvalidToken)
		}
		return nil, err
	}
	if !cred.User.Active {
		return nil, domain.Unauthorized(msgUserInactive)
	}
	return &cred.User, nil
}

func (s *AuthService) issueSession(user *domain.User) (*ports.Session, error) {
	access, err := s.tokens.Issue(user, ports.TokenAccess)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.Issue(user, ports.TokenRefresh)
	if err != nil {
		return nil, err
	}
	return &ports.Session{AccessToken: access, RefreshToken: refresh, User: user}, nil
}
