package domain

import "time"

// Role enumerates what a user may do in the helpdesk.
type Role string

const (
	RoleCommon     Role = "COMMON"
	RoleTechnician Role = "TECHNICIAN"
	RoleManager    Role = "MANAGER"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleCommon, RoleTechnician, RoleManager, RoleSuperAdmin:
		return true
	}
	return false
}

// RequiresArea reports whether the role is only useful with an area association.
func (r Role) RequiresArea() bool {
	return r == RoleManager || r == RoleTechnician
}

// User is anyone who can sign in: requesters, technicians, managers and administrators.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	AreaID       *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// InArea reports whether the user belongs to areaID.
func (u *User) InArea(areaID string) bool {
	return u != nil && u.AreaID != nil && *u.AreaID == areaID
}
