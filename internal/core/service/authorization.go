package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

const bearerScheme = "bearer"

// Gate resolves the caller behind a bearer credential and enforces
// capabilities against the caller's live role.
type Gate struct {
	registry ports.UserRegistry
	tokens   ports.TokenService
	cache    ports.IdentityCache
	log      zerolog.Logger
}

// NewGate returns a Gate. cache may be nil.
func NewGate(registry ports.UserRegistry, tokens ports.TokenService, cache ports.IdentityCache, log zerolog.Logger) *Gate {
	return &Gate{registry: registry, tokens: tokens, cache: cache, log: log}
}

// ResolveCaller authenticates an "Authorization: Bearer <token>" value. Only
// access tokens are accepted, and the identity is always re-read so the role
// embedded in the token is never trusted.
func (g *Gate) ResolveCaller(ctx context.Context, credential string) (*domain.User, error) {
	if credential == "" {
		return nil, domain.Unauthorized("missing authorization")
	}
	scheme, token, ok := strings.Cut(credential, " ")
	if !ok || !strings.EqualFold(scheme, bearerScheme) || token == "" {
		return nil, domain.Unauthorized("invalid authorization")
	}

	claims, err := g.tokens.Decode(token)
	if err != nil {
		g.log.Debug().Err(err).Msg("access token rejected")
		return nil, err
	}
	if claims.Kind != ports.TokenAccess {
		return nil, domain.Unauthorized(msgInvalidToken)
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, domain.Unauthorized(msgInvalidToken)
	}

	user, err := g.lookup(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, domain.Unauthorized(msgUserInactive)
	}
	return user, nil
}

// RequireRole fails with domain.ErrForbidden unless user's role grants capability.
func (g *Gate) RequireRole(user *domain.User, capability domain.Capability) (*domain.User, error) {
	if user == nil {
		return nil, domain.Unauthorized("missing authentication")
	}
	if !user.Role.Can(capability) {
		return nil, domain.Forbidden("insufficient privileges")
	}
	return user, nil
}

func (g *Gate) lookup(ctx context.Context, id string) (*domain.User, error) {
	if g.cache != nil {
		cached, hit, err := g.cache.Get(ctx, id)
		if err != nil {
			g.log.Warn().Err(err).Str("user_id", id).Msg("identity cache read failed")
		} else if hit {
			return cached, nil
		}
	}

	cred, err := g.registry.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Unauthorized(msgInvalidToken)
		}
		return nil, err
	}

	if g.cache != nil {
		if err := g.cache.Set(ctx, &cred.User); err != nil {
			g.log.Warn().Err(err).Str("user_id", id).Msg("identity cache write failed")
		}
	}
	return &cred.User, nil
}
