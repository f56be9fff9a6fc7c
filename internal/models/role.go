package models

// Role is the closed set of access levels a user can hold. Keeping it a
// distinct type (instead of a bare string) means handlers never have to
// carry an "unknown role" branch: anything outside the set fails Valid().
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleConsultant Role = "consultant"
	RoleReadOnly   Role = "read_only"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleConsultant, RoleReadOnly:
		return true
	}
	return false
}

// ParseRole maps a stored string onto a Role, rejecting anything outside
// the closed set.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.Valid()
}
