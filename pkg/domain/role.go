package domain

// Role is the access role a user holds. Roles are flat: no role implies
// another, and routes enumerate every role they accept. The single
// asymmetry is RoleSysAdmin, which is tenant-less and globally scoped.
type Role string

const (
	RoleStudent     Role = "student"
	RoleTeacher     Role = "teacher"
	RoleParent      Role = "parent"
	RoleSchoolAdmin Role = "school_admin"
	RoleSysAdmin    Role = "sys_admin"
)

// Valid returns true if the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleParent, RoleSchoolAdmin, RoleSysAdmin:
		return true
	}
	return false
}

// RoleSet is a set of roles a route or operation accepts.
type RoleSet map[Role]struct{}

// NewRoleSet builds a set from one or more roles, normalizing the scalar
// case into a singleton set.
func NewRoleSet(roles ...Role) RoleSet {
	s := make(RoleSet, len(roles))
	for _, r := range roles {
		s[r] = struct{}{}
	}
	return s
}

// Contains reports whether the role is a member of the set. This is a pure
// membership test; school_admin is not implicitly included where teacher is
// listed, and vice versa.
func (s RoleSet) Contains(r Role) bool {
	_, ok := s[r]
	return ok
}
