package auth

import "github.com/stridehq/stride/models"

// User roles. Admin operations are gated on the role carried by the user
// document, never on a particular account's identity.
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// Capability decides what privileged operations a user may perform. Gating
// goes through this interface so callers never compare against a literal
// identity.
type Capability interface {
	// CanReviewSubmissions reports whether the user may review ladder
	// submissions.
	CanReviewSubmissions(user *models.User) bool
	// CanResetProgress reports whether the user may run administrative
	// resets such as the weekly points boundary.
	CanResetProgress(user *models.User) bool
}

// RoleCapability grants privileged operations to the admin role.
type RoleCapability struct{}

func (RoleCapability) CanReviewSubmissions(user *models.User) bool {
	return user != nil && user.Role == RoleAdmin
}

func (RoleCapability) CanResetProgress(user *models.User) bool {
	return user != nil && user.Role == RoleAdmin
}
