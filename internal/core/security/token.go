package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// signingMethod is the only algorithm issued or accepted.
var signingMethod = jwt.SigningMethodHS256

type tokenClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	Kind  string `json:"token_type"`
	jwt.RegisteredClaims
}

// JWTService signs tokens with a shared secret.
type JWTService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// Option customises a JWTService.
type Option func(*JWTService)

// WithClock replaces time.Now for both issuance and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *JWTService) { s.now = now }
}

// NewJWTService returns a token service. Non-positive lifetimes fall back to
// 15 minutes (access) and 7 days (refresh).
func NewJWTService(secret string, accessTTL, refreshTTL time.Duration, opts ...Option) (*JWTService, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	s := &JWTService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue signs a token of the given kind for user.
func (s *JWTService) Issue(user *domain.User, kind ports.TokenKind) (string, error) {
	var ttl time.Duration
	switch kind {
	case ports.TokenAccess:
		ttl = s.accessTTL
	case ports.TokenRefresh:
		ttl = s.refreshTTL
	default:
		return "", domain.Internal("issue token", fmt.Errorf("unknown token kind %q", kind))
	}

	claims := tokenClaims{
		Email: user.Email,
		Role:  string(user.Role),
		Kind:  string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(s.now().Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(s.secret)
	if err != nil {
		return "", domain.Internal("sign token", err)
	}
	return signed, nil
}

// Decode verifies the signature, algorithm and expiry of raw and returns its
// claims. All failures collapse into a single unauthorized error; the
// underlying cause is kept on the error for logging.
func (s *JWTService) Decode(raw string) (*ports.Claims, error) {
	var c tokenClaims
	parsed, err := jwt.ParseWithClaims(raw, &c, s.keyFunc,
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, domain.UnauthorizedCause("invalid token", err)
	}
	if !parsed.Valid {
		return nil, domain.Unauthorized("invalid token")
	}

	kind := ports.TokenKind(c.Kind)
	if kind != ports.TokenAccess && kind != ports.TokenRefresh {
		return nil, domain.UnauthorizedCause("invalid token", fmt.Errorf("unknown token kind %q", c.Kind))
	}
	role, err := domain.ParseRole(c.Role)
	if err != nil {
		return nil, domain.UnauthorizedCause("invalid token", err)
	}
	if c.Subject == "" {
		return nil, domain.UnauthorizedCause("invalid token", errors.New("missing subject"))
	}

	return &ports.Claims{
		Subject:   c.Subject,
		Email:     c.Email,
		Role:      role,
		Kind:      kind,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}

func (s *JWTService) keyFunc(token *jwt.Token) (any, error) {
	if token.Method.Alg() != signingMethod.Alg() {
		return nil, jwt.ErrTokenSignatureInvalid
	}
	return s.secret, nil
}
