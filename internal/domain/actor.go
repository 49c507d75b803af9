package domain

// Role enumerates the help-desk roles a caller can act under.
type Role string

const (
	RoleEndUser    Role = "end_user"
	RoleTechnician Role = "technician"
	RoleSecretary  Role = "secretary"
	RoleDSIAdmin   Role = "dsi_admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleEndUser, RoleTechnician, RoleSecretary, RoleDSIAdmin:
		return true
	}
	return false
}

// IsStaff reports whether r is one of the dispatching roles (secretary or DSI).
func (r Role) IsStaff() bool {
	return r == RoleSecretary || r == RoleDSIAdmin
}

// Actor is the role and identity on whose behalf an operation runs.
type Actor struct {
	ID   string
	Role Role
}
