package shared

// Role is the authorization level of a user.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleStandard Role = "STANDARD"
	RoleReadOnly Role = "READONLY"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStandard, RoleReadOnly:
		return true
	}
	return false
}

// CanWrite reports whether the role may create or update records.
func (r Role) CanWrite() bool {
	return r == RoleAdmin || r == RoleStandard
}

// CanDelete reports whether the role may delete master records and documents.
func (r Role) CanDelete() bool {
	return r == RoleAdmin
}
