package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/99minutos/identity-service/internal/core/domain"
)

const identityKeyPrefix = "identity:"

// IdentityCache stores short-lived identity snapshots for the authorization
// gate. Digests are never written to Redis.
// Key format: identity:<user_id>
type IdentityCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewIdentityCache(client redis.UniversalClient, ttl time.Duration) *IdentityCache {
	return &IdentityCache{client: client, ttl: ttl}
}

type cachedIdentity struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	Active    bool   `json:"is_active"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// Get returns (nil, false, nil) on a miss.
func (c *IdentityCache) Get(ctx context.Context, id string) (*domain.User, bool, error) {
	raw, err := c.client.Get(ctx, identityKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("identity cache get: %w", err)
	}

	user, err := decodeIdentity(raw)
	if err != nil {
		// A corrupt entry is treated as a miss and dropped.
		_ = c.client.Del(ctx, identityKey(id)).Err()
		return nil, false, nil
	}
	return user, true, nil
}

func (c *IdentityCache) Set(ctx context.Context, user *domain.User) error {
	raw, err := encodeIdentity(user)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, identityKey(user.ID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("identity cache set: %w", err)
	}
	return nil
}

func (c *IdentityCache) Invalidate(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, identityKey(id)).Err(); err != nil {
		return fmt.Errorf("identity cache invalidate: %w", err)
	}
	return nil
}

func identityKey(id string) string {
	return identityKeyPrefix + id
}

func encodeIdentity(u *domain.User) ([]byte, error) {
	if u == nil || u.ID == "" {
		return nil, errors.New("identity cache: missing user id")
	}
	return json.Marshal(cachedIdentity{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		Role:      string(u.Role),
		Active:    u.Active,
		CreatedAt: u.CreatedAt.UnixMilli(),
		UpdatedAt: u.UpdatedAt.UnixMilli(),
	})
}

func decodeIdentity(raw []byte) (*domain.User, error) {
	var ci cachedIdentity
	if err := json.Unmarshal(raw, &ci); err != nil {
		return nil, err
	}
	role, err := domain.ParseRole(ci.Role)
	if err != nil {
		return nil, err
	}
	if ci.ID == "" {
		return nil, errors.New("identity cache: empty id")
	}
	return &domain.User{
		ID:        ci.ID,
		Email:     ci.Email,
		Username:  ci.Username,
		Role:      role,
		Active:    ci.Active,
		CreatedAt: time.UnixMilli(ci.CreatedAt).UTC(),
		UpdatedAt: time.UnixMilli(ci.UpdatedAt).UTC(),
	}, nil
}
