package api

import "strings"

// Role is the caller's permission level as defined by the backend.
type Role int

const (
	RoleUnknown Role = iota
	RoleManager
	RoleEmployee
)

// ParseRole maps the backend's role name onto a Role. "Manager" is the only
// privileged value; any other non-empty name is treated as an employee.
func ParseRole(name string) Role {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return RoleUnknown
	case strings.EqualFold(name, "Manager"):
		return RoleManager
	default:
		return RoleEmployee
	}
}

func (r Role) String() string {
	switch r {
	case RoleManager:
		return "Manager"
	case RoleEmployee:
		return "Employee"
	default:
		return "Unknown"
	}
}

// CanMutate reports whether the role may create, edit or delete records.
func (r Role) CanMutate() bool {
	return r == RoleManager
}
