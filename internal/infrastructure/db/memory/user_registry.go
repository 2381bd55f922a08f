// Package memory is a process-local UserRegistry for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/99minutos/identity-service/internal/core/domain"
)

type record struct {
	user domain.User
	hash string
	seq  uint64
}

// UserRegistry keeps identities in memory. Email and username lookups are
// exact (case-sensitive), matching the database drivers.
type UserRegistry struct {
	mu      sync.RWMutex
	byID    map[string]*record
	seq     uint64
	nowFunc func() time.Time
}

func NewUserRegistry() *UserRegistry {
	return &UserRegistry{
		byID:    make(map[string]*record),
		nowFunc: func() time.Time { return time.Now().UTC() },
	}
}

func (r *UserRegistry) FindByEmail(_ context.Context, email string) (*domain.Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.byID {
		if rec.user.Email == email {
			return rec.credential(), nil
		}
	}
	return nil, domain.NotFound("user not found")
}

func (r *UserRegistry) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.byID {
		if rec.user.Username == username {
			u := rec.user
			return &u, nil
		}
	}
	return nil, domain.NotFound("user not found")
}

func (r *UserRegistry) FindByID(_ context.Context, id string) (*domain.Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byID[id]
	if !ok {
		return nil, domain.NotFound("user not found")
	}
	return rec.credential(), nil
}

func (r *UserRegistry) Create(_ context.Context, in domain.NewUser) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkUniqueLocked("", &in.Email, &in.Username); err != nil {
		return nil, err
	}

	now := r.nowFunc()
	r.seq++
	rec := &record{
		user: domain.User{
			ID:        uuid.NewString(),
			Email:     in.Email,
			Username:  in.Username,
			Role:      in.Role,
			Active:    in.Active,
			CreatedAt: now,
			UpdatedAt: now,
		},
		hash: in.PasswordHash,
		seq:  r.seq,
	}
	r.byID[rec.user.ID] = rec
	u := rec.user
	return &u, nil
}

func (r *UserRegistry) UpdateProfile(ctx context.Context, id string, in domain.ProfileUpdate) (*domain.User, error) {
	return r.UpdateAdminFields(ctx, id, domain.AdminUpdate{Email: in.Email, Username: in.Username})
}

func (r *UserRegistry) UpdateAdminFields(_ context.Context, id string, in domain.AdminUpdate) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[id]
	if !ok {
		return nil, domain.NotFound("user not found")
	}
	if err := r.checkUniqueLocked(id, in.Email, in.Username); err != nil {
		return nil, err
	}

	if in.Email != nil {
		rec.user.Email = *in.Email
	}
	if in.Username != nil {
		rec.user.Username = *in.Username
	}
	if in.Role != nil {
		rec.user.Role = *in.Role
	}
	if in.Active != nil {
		rec.user.Active = *in.Active
	}
	rec.user.UpdatedAt = r.nowFunc()
	u := rec.user
	return &u, nil
}

func (r *UserRegistry) SetActive(_ context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[id]
	if !ok {
		return domain.NotFound("user not found")
	}
	rec.user.Active = active
	rec.user.UpdatedAt = r.nowFunc()
	return nil
}

func (r *UserRegistry) List(_ context.Context, limit, offset int) ([]domain.User, error) {
	r.mu.RLock()
	recs := make([]*record, 0, len(r.byID))
	for _, rec := range r.byID {
		recs = append(recs, rec)
	}
	r.mu.RUnlock()

	// Newest first; seq breaks ties between identical timestamps.
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq > recs[j].seq })

	if offset < 0 {
		offset = 0
	}
	if offset >= len(recs) || limit <= 0 {
		return []domain.User{}, nil
	}
	end := min(offset+limit, len(recs))

	out := make([]domain.User, 0, end-offset)
	for _, rec := range recs[offset:end] {
		out = append(out, rec.user)
	}
	return out, nil
}

func (r *UserRegistry) checkUniqueLocked(id string, email, username *string) error {
	for otherID, rec := range r.byID {
		if otherID == id {
			continue
		}
		if email != nil && rec.user.Email == *email {
			return domain.Conflict("email already exists")
		}
		if username != nil && rec.user.Username == *username {
			return domain.Conflict("username already exists")
		}
	}
	return nil
}

func (rec *record) credential() *domain.Credential {
	return &domain.Credential{User: rec.user, PasswordHash: rec.hash}
}
