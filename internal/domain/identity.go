package domain

import "time"

// Role enumerates internal operator roles within a dealership.
type Role string

const (
	RoleOwner   Role = "OWNER"
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleSales   Role = "SALES"
)

// roleLevels maps each role to its numeric privilege level.
var roleLevels = map[Role]int{
	RoleOwner:   100,
	RoleAdmin:   80,
	RoleManager: 60,
	RoleSales:   40,
}

// Level returns the numeric privilege level for the role, 0 when unknown.
func (r Role) Level() int {
	return roleLevels[r]
}

// Identity models a staff or platform user looked up by phone. A phone may
// yield zero, one, or more than one identity; the ambiguous case is a
// data-quality condition handled by the resolver.
type Identity struct {
	ID              string
	TenantID        *string
	Name            string
	Phone           string
	PhoneNormalized string
	Role            Role
	RoleLevel       int
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsPlatformStaff reports whether the identity is platform-wide rather than
// tenant-scoped.
func (i Identity) IsPlatformStaff() bool {
	return i.TenantID == nil
}
