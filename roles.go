package auth

// Role is the authorization classification read from a team member record
type Role = string

const (
	// RoleNone means no team member record matched the principal
	RoleNone Role = ""
	// RoleStaff is the lowest privilege tier (i.e. view, manage own bookings)
	RoleStaff Role = "staff"
	// RoleAdmin manages a shop (i.e. staff, services, schedules)
	RoleAdmin Role = "admin"
	// RoleOwner manages every shop (i.e. admins, billing, deletion)
	RoleOwner Role = "owner"
)

var roleHierarchy = map[Role]int{
	RoleStaff: 1,
	RoleAdmin: 2,
	RoleOwner: 3,
}

// IsKnownRole checks if the role is one of the predefined roles
func IsKnownRole(role Role) bool {
	_, ok := roleHierarchy[role]
	return ok
}

// RoleIsAtLeast checks if role meets the minimum required level. RoleNone
// and unknown roles never qualify.
func RoleIsAtLeast(role, minRole Role) bool {
	current, ok := roleHierarchy[role]
	if !ok {
		return false
	}

	min, ok := roleHierarchy[minRole]
	if !ok {
		return false
	}

	return current >= min
}

// GetAllRoles returns all predefined roles in hierarchical order
func GetAllRoles() []Role {
	return []Role{
		RoleStaff,
		RoleAdmin,
		RoleOwner,
	}
}

// ParseRole safely parses a string into a Role
func ParseRole(roleStr string) (Role, bool) {
	role := Role(roleStr)
	return role, IsKnownRole(role)
}
