package auth

import "github.com/educore/educore/pkg/domain"

// HasRole reports whether the identity's role is a member of the allowed
// set. There is no role hierarchy: a route that should accept both teachers
// and school admins must list both.
func HasRole(identity *Identity, allowed domain.RoleSet) bool {
	if identity == nil {
		return false
	}
	return allowed.Contains(identity.Role)
}
