package auth

import "strings"

// Role is the privilege level attached to a user account.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
)

var roleRank = map[Role]int{
	RoleUser:       0,
	RoleAdmin:      1,
	RoleSuperadmin: 2,
}

// ParseRole normalizes a raw role string. Unknown values map to RoleUser.
func ParseRole(raw string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleSuperadmin:
		return RoleSuperadmin
	default:
		return RoleUser
	}
}

// AtLeast reports whether r ranks at or above other in the role hierarchy.
func (r Role) AtLeast(other Role) bool {
	return roleRank[r] >= roleRank[other]
}

// Privileged reports whether the role bypasses ownership checks for
// read/write/delete. Sharing stays owner-only regardless of role.
func (r Role) Privileged() bool {
	return r.AtLeast(RoleAdmin)
}

// CanReassignOwnership reports whether the role may transfer record
// ownership. This is deliberately narrower than Privileged.
func (r Role) CanReassignOwnership() bool {
	return r == RoleSuperadmin
}

// Principal is the authenticated actor derived from a session.
type Principal struct {
	ID    string
	Email string
	Role  Role
}
