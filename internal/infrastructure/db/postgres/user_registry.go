package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/99minutos/identity-service/internal/core/domain"
)

const uniqueViolation = "23505"

const userColumns = "id, email, username, password_hash, role, is_active, created_at, updated_at"

// UserRegistry implements ports.UserRegistry on a Postgres users table.
type UserRegistry struct {
	db *sql.DB
}

// NewUserRegistry creates the users table when missing.
func NewUserRegistry(ctx context.Context, db *sql.DB) (*UserRegistry, error) {
	r := &UserRegistry{db: db}
	if err := r.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *UserRegistry) ensureSchema(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	username TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT 'user',
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS users_created_at_idx ON users (created_at DESC);`
	if _, err := r.db.ExecContext(ctx, q); err != nil {
		return domain.Internal("ensure users schema", err)
	}
	return nil
}

func (r *UserRegistry) FindByEmail(ctx context.Context, email string) (*domain.Credential, error) {
	return r.queryOne(ctx, "SELECT "+userColumns+" FROM users WHERE email = $1", email)
}

func (r *UserRegistry) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	cred, err := r.queryOne(ctx, "SELECT "+userColumns+" FROM users WHERE username = $1", username)
	if err != nil {
		return nil, err
	}
	return &cred.User, nil
}

func (r *UserRegistry) FindByID(ctx context.Context, id string) (*domain.Credential, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.NotFound("user not found")
	}
	return r.queryOne(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
}

func (r *UserRegistry) Create(ctx context.Context, in domain.NewUser) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	const q = `INSERT INTO users (id, email, username, password_hash, role, is_active)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING created_at, updated_at`

	u := domain.User{
		ID:       uuid.NewString(),
		Email:    in.Email,
		Username: in.Username,
		Role:     in.Role,
		Active:   in.Active,
	}
	err := r.db.QueryRowContext(ctx, q, u.ID, u.Email, u.Username, in.PasswordHash, string(u.Role), u.Active).
		Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, mapWriteError("insert user", err)
	}
	return &u, nil
}

func (r *UserRegistry) UpdateProfile(ctx context.Context, id string, in domain.ProfileUpdate) (*domain.User, error) {
	const q = `UPDATE users SET email = COALESCE($1, email), username = COALESCE($2, username), updated_at = NOW()
WHERE id = $3 RETURNING ` + userColumns
	return r.update(ctx, id, q, nullString(in.Email), nullString(in.Username), id)
}

func (r *UserRegistry) UpdateAdminFields(ctx context.Context, id string, in domain.AdminUpdate) (*domain.User, error) {
	const q = `UPDATE users SET email = COALESCE($1, email), username = COALESCE($2, username),
role = COALESCE($3, role), is_active = COALESCE($4, is_active), updated_at = NOW()
WHERE id = $5 RETURNING ` + userColumns

	var role any
	if in.Role != nil {
		role = string(*in.Role)
	}
	var active any
	if in.Active != nil {
		active = *in.Active
	}
	return r.update(ctx, id, q, nullString(in.Email), nullString(in.Username), role, active, id)
}

func (r *UserRegistry) SetActive(ctx context.Context, id string, active bool) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.NotFound("user not found")
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, "UPDATE users SET is_active = $1, updated_at = NOW() WHERE id = $2", active, id)
	if err != nil {
		return domain.Internal("set user active", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Internal("set user active", err)
	}
	if n == 0 {
		return domain.NotFound("user not found")
	}
	return nil
}

// List returns identities newest first; id breaks created_at ties.
func (r *UserRegistry) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2", limit, offset)
	if err != nil {
		return nil, domain.Internal("list users", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0, limit)
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, cred.User)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal("list users", err)
	}
	return users, nil
}

func (r *UserRegistry) update(ctx context.Context, id, q string, args ...any) (*domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.NotFound("user not found")
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cred, err := scanCredential(r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		return nil, err
	}
	return &cred.User, nil
}

func (r *UserRegistry) queryOne(ctx context.Context, q string, arg any) (*domain.Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return scanCredential(r.db.QueryRowContext(ctx, q, arg))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredential(row rowScanner) (*domain.Credential, error) {
	var (
		c    domain.Credential
		role string
	)
	err := row.Scan(&c.User.ID, &c.User.Email, &c.User.Username, &c.PasswordHash,
		&role, &c.User.Active, &c.User.CreatedAt, &c.User.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound("user not found")
		}
		return nil, mapWriteError("scan user", err)
	}

	parsed, err := domain.ParseRole(role)
	if err != nil {
		return nil, domain.Internal("decode user role", err)
	}
	c.User.Role = parsed
	c.User.CreatedAt = c.User.CreatedAt.UTC()
	c.User.UpdatedAt = c.User.UpdatedAt.UTC()
	return &c, nil
}

// mapWriteError turns unique constraint violations into conflicts.
func mapWriteError(op string, err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return domain.Internal(op, err)
	}
	switch {
	case strings.Contains(pqErr.Constraint, "email"):
		return domain.Conflict("email already exists")
	case strings.Contains(pqErr.Constraint, "username"):
		return domain.Conflict("username already exists")
	default:
		return domain.Conflict("user already exists")
	}
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

