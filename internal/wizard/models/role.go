package models

import (
	"fmt"
	"strings"
)

// Role is the applicant class a wizard session runs for.
type Role string

const (
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
	RoleStaff   Role = "staff"
)

// ParseRole accepts a role name case-insensitively.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleStudent, RoleFaculty, RoleStaff:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// IsEmployee reports whether the role uses the faculty/staff schema.
func (r Role) IsEmployee() bool {
	return r == RoleFaculty || r == RoleStaff
}

// IDPrefix is the role segment of provisional application ids.
func (r Role) IDPrefix() string {
	switch r {
	case RoleStudent:
		return "STU"
	case RoleFaculty:
		return "FAC"
	default:
		return "STF"
	}
}

func (r Role) String() string { return string(r) }
