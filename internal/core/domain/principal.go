package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Role is the coarse permission level of an authenticated user.
type Role string

const (
	RoleAssociate Role = "associate"
	RoleManager   Role = "manager"
)

// ParseRole accepts either casing of a known role.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	switch role {
	case RoleAssociate, RoleManager:
		return role, true
	}
	return "", false
}

// Principal is the acting user as supplied by the authentication layer.
type Principal struct {
	ID    uuid.UUID
	Role  Role
	Email string
}

func (p Principal) IsManager() bool {
	return p.Role == RoleManager
}
