package domain

import "time"

// Role is the enumerated privilege level of an identity.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Capability names an operation gated on role.
type Capability string

const (
	CapabilityManageUsers Capability = "manage_users"
)

var roleCapabilities = map[Role][]Capability{
	RoleUser:  nil,
	RoleAdmin: {CapabilityManageUsers},
}

// ParseRole converts a stored or requested role name into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAdmin:
		return Role(s), nil
	default:
		return "", Validation("invalid role: " + s)
	}
}

func (r Role) Valid() bool {
	_, ok := roleCapabilities[r]
	return ok
}

// Can reports whether r grants capability c.
func (r Role) Can(c Capability) bool {
	for _, granted := range roleCapabilities[r] {
		if granted == c {
			return true
		}
	}
	return false
}

// User is a registered identity as owned by the registry.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	Active    bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Credential pairs an identity with its password digest. It never crosses
// the API boundary.
type Credential struct {
	User         User
	PasswordHash string
}

// NewUser is the registry input for creating an identity.
type NewUser struct {
	Email        string
	Username     string
	PasswordHash string
	Role         Role
	Active       bool
}

// ProfileUpdate carries self-service changes; nil fields are left untouched.
type ProfileUpdate struct {
	Email    *string
	Username *string
}

// AdminUpdate carries admin-only changes; nil fields are left untouched.
type AdminUpdate struct {
	Email    *string
	Username *string
	Role     *Role
	Active   *bool
}
