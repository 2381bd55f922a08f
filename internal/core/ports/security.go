package ports

import (
	"context"
	"errors"
	"time"

	"github.com/99minutos/identity-service/internal/core/domain"
)

// ErrUnusableDigest marks a stored digest that cannot be parsed or verified.
// Hashers wrap it so callers can tell it apart from infrastructure failures.
var ErrUnusableDigest = errors.New("unusable password digest")

// PasswordHasher derives and verifies salted password digests.
//
// Verify returns (false, nil) for a wrong password and (false, err) when the
// digest itself cannot be parsed (wrapping ErrUnusableDigest), so callers can
// audit the two cases apart.
type PasswordHasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	Verify(ctx context.Context, digest, candidate string) (bool, error)
}

// TokenKind distinguishes what a token may authorize.
type TokenKind string

const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
)

// Claims is the decoded content of a token. Role is a snapshot taken at
// issuance and must not be used for authorization decisions.
type Claims struct {
	Subject   string
	Email     string
	Role      domain.Role
	Kind      TokenKind
	ExpiresAt time.Time
}

// TokenService issues and validates signed, expiring tokens.
type TokenService interface {
	Issue(user *domain.User, kind TokenKind) (string, error)
	// Decode fails with domain.ErrUnauthorized for any bad signature,
	// malformed claims or expired token.
	Decode(token string) (*Claims, error)
}
