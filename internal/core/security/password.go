// Package security holds the credential primitives: Argon2id password
// digests and HS256 signed tokens.
package security

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/99minutos/identity-service/internal/core/ports"
)

// Argon2id work factors. Tuned for interactive logins (tens of milliseconds
// per derivation on commodity hardware).
const (
	argonMemoryKiB   = 19 * 1024
	argonIterations  = 2
	argonParallelism = 1
	argonSaltLen     = 16
	argonKeyLen      = 32

	// maxArgonMemoryKiB bounds the memory a stored digest may ask Verify to spend.
	maxArgonMemoryKiB = 1 << 20
)

// ErrMalformedDigest is returned by Verify when the stored digest cannot be parsed.
var ErrMalformedDigest = fmt.Errorf("malformed argon2id digest: %w", ports.ErrUnusableDigest)

var b64 = base64.RawStdEncoding

// Argon2Hasher produces PHC-formatted Argon2id digests:
//
//	$argon2id$v=19$m=19456,t=2,p=1$<salt>$<key>
type Argon2Hasher struct {
	rand io.Reader
}

func NewArgon2Hasher() *Argon2Hasher {
	return &Argon2Hasher{rand: rand.Reader}
}

// Hash derives a digest with a fresh random salt.
func (h *Argon2Hasher) Hash(_ context.Context, plaintext string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := io.ReadFull(h.rand, salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	key := argon2.IDKey([]byte(plaintext), salt, argonIterations, argonMemoryKiB, argonParallelism, argonKeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemoryKiB, argonIterations, argonParallelism,
		b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

// Verify recomputes the key with the parameters embedded in digest.
func (h *Argon2Hasher) Verify(_ context.Context, digest, candidate string) (bool, error) {
	p, err := parseDigest(digest)
	if err != nil {
		return false, err
	}
	key := argon2.IDKey([]byte(candidate), p.salt, p.iterations, p.memory, p.parallelism, uint32(len(p.key)))
	return subtle.ConstantTimeCompare(key, p.key) == 1, nil
}

type digestParams struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func parseDigest(digest string) (*digestParams, error) {
	parts := strings.Split(digest, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return nil, fmt.Errorf("%w: unexpected layout", ErrMalformedDigest)
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, fmt.Errorf("%w: unsupported version", ErrMalformedDigest)
	}

	var m, t, par uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &m, &t, &par); err != nil {
		return nil, fmt.Errorf("%w: params: %v", ErrMalformedDigest, err)
	}
	if m == 0 || m > maxArgonMemoryKiB || t == 0 || par == 0 || par > 255 {
		return nil, fmt.Errorf("%w: params out of range", ErrMalformedDigest)
	}

	salt, err := b64.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return nil, fmt.Errorf("%w: salt", ErrMalformedDigest)
	}
	key, err := b64.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return nil, fmt.Errorf("%w: key", ErrMalformedDigest)
	}

	return &digestParams{
		memory:      m,
		iterations:  t,
		parallelism: uint8(par),
		salt:        salt,
		key:         key,
	}, nil
}
